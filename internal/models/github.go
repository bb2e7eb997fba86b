package models

import "fmt"

// GitHub webhook payload variants. Each event type decodes into its
// own struct and validates its required fields before any routing
// happens, so a malformed delivery fails as a 400 rather than deep
// inside a handler.

type Repository struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Private     bool   `json:"private"`
	CreatedAt   string `json:"created_at"`
}

type User struct {
	Login string `json:"login"`
}

type Label struct {
	Name string `json:"name"`
}

type Issue struct {
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	State     string  `json:"state"`
	HTMLURL   string  `json:"html_url"`
	User      User    `json:"user"`
	CreatedAt string  `json:"created_at"`
	Labels    []Label `json:"labels"`
}

type IssueEvent struct {
	Action     string     `json:"action"`
	Issue      Issue      `json:"issue"`
	Repository Repository `json:"repository"`
}

func (e *IssueEvent) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("issue event: missing action")
	}
	if e.Issue.Number == 0 {
		return fmt.Errorf("issue event: missing issue.number")
	}
	if e.Repository.Name == "" {
		return fmt.Errorf("issue event: missing repository.name")
	}
	return nil
}

type Branch struct {
	Ref string `json:"ref"`
}

type PullRequest struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	State     string `json:"state"`
	HTMLURL   string `json:"html_url"`
	User      User   `json:"user"`
	Base      Branch `json:"base"`
	Head      Branch `json:"head"`
	CreatedAt string `json:"created_at"`
	Mergeable *bool  `json:"mergeable"`
	Draft     bool   `json:"draft"`
}

type PullRequestEvent struct {
	Action      string      `json:"action"`
	PullRequest PullRequest `json:"pull_request"`
	Repository  Repository  `json:"repository"`
}

func (e *PullRequestEvent) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("pull_request event: missing action")
	}
	if e.PullRequest.Number == 0 {
		return fmt.Errorf("pull_request event: missing pull_request.number")
	}
	if e.Repository.Name == "" {
		return fmt.Errorf("pull_request event: missing repository.name")
	}
	return nil
}

type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Commit struct {
	ID        string       `json:"id"`
	Message   string       `json:"message"`
	URL       string       `json:"url"`
	Timestamp string       `json:"timestamp"`
	Author    CommitAuthor `json:"author"`
	Added     []string     `json:"added"`
	Removed   []string     `json:"removed"`
	Modified  []string     `json:"modified"`
}

type PushEvent struct {
	Ref        string     `json:"ref"`
	Commits    []Commit   `json:"commits"`
	Repository Repository `json:"repository"`
}

func (e *PushEvent) Validate() error {
	if e.Ref == "" {
		return fmt.Errorf("push event: missing ref")
	}
	if e.Repository.Name == "" {
		return fmt.Errorf("push event: missing repository.name")
	}
	return nil
}

type RepositoryEvent struct {
	Action     string     `json:"action"`
	Repository Repository `json:"repository"`
}

func (e *RepositoryEvent) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("repository event: missing action")
	}
	if e.Repository.Name == "" {
		return fmt.Errorf("repository event: missing repository.name")
	}
	return nil
}

type PingEvent struct {
	Zen string `json:"zen"`
}
