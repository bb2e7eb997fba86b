package events

import (
	"fmt"
	"strings"

	"github.com/wekan-tools/github-wekan-sync/internal/models"
)

// Card title and description formatting. The markdown layout is a
// fixed convention shared with existing boards; keep it stable.

func issueCardTitle(issue models.Issue) string {
	return fmt.Sprintf("Issue #%d: %s", issue.Number, issue.Title)
}

func issueCardDescription(issue models.Issue) string {
	body := issue.Body
	if body == "" {
		body = "No description provided"
	}
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.Name)
	}
	return fmt.Sprintf(`
**GitHub Issue**: %s
**Author**: %s
**State**: %s
**Created**: %s

**Description**:
%s

**Labels**: %s
`, issue.HTMLURL, issue.User.Login, issue.State, issue.CreatedAt, body, strings.Join(labels, ", "))
}

func pullRequestCardTitle(pr models.PullRequest) string {
	return fmt.Sprintf("PR #%d: %s", pr.Number, pr.Title)
}

func pullRequestCardDescription(pr models.PullRequest) string {
	body := pr.Body
	if body == "" {
		body = "No description provided"
	}
	mergeable := "Unknown"
	if pr.Mergeable != nil {
		mergeable = fmt.Sprintf("%v", *pr.Mergeable)
	}
	return fmt.Sprintf(`
**GitHub Pull Request**: %s
**Author**: %s
**State**: %s
**Base Branch**: %s
**Head Branch**: %s
**Created**: %s

**Description**:
%s

**Mergeable**: %s
**Draft**: %v
`, pr.HTMLURL, pr.User.Login, pr.State, pr.Base.Ref, pr.Head.Ref, pr.CreatedAt, body, mergeable, pr.Draft)
}

func commitCardTitle(commit models.Commit) string {
	firstLine := strings.SplitN(commit.Message, "\n", 2)[0]
	return fmt.Sprintf("Commit: %s", firstLine)
}

func commitCardDescription(commit models.Commit) string {
	sha := commit.ID
	if len(sha) > 8 {
		sha = sha[:8]
	}
	return fmt.Sprintf(`
**GitHub Commit**: %s
**Author**: %s <%s>
**Timestamp**: %s
**SHA**: %s

**Full Message**:
%s

**Modified Files**: %d
**Added Files**: %d
**Removed Files**: %d
`, commit.URL, commit.Author.Name, commit.Author.Email, commit.Timestamp, sha,
		commit.Message, len(commit.Modified), len(commit.Added), len(commit.Removed))
}

func repositorySetupCardDescription(repo models.Repository) string {
	description := repo.Description
	if description == "" {
		description = "No description"
	}
	language := repo.Language
	if language == "" {
		language = "Unknown"
	}
	return fmt.Sprintf(`
**Repository**: %s
**Description**: %s
**Language**: %s
**Private**: %v
**Created**: %s

Initial setup tasks for the new repository.
`, repo.HTMLURL, description, language, repo.Private, repo.CreatedAt)
}
