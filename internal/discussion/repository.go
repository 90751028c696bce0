package discussion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gitjournal/api/internal/graphql"
)

var (
	ErrNotFound         = errors.New("discussion or repository not found")
	ErrCategoryNotFound = errors.New("discussion category not found")
	ErrUnauthorized     = errors.New("token lacks permission for this operation")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Executor runs a GraphQL document; *graphql.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, token, query string, vars map[string]any, out any) error
}

type Repository struct {
	gql    Executor
	logger *slog.Logger
}

func NewRepository(gql Executor, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{gql: gql, logger: logger}
}

// GetDiscussion fetches a discussion with its first page of comments, newest
// first.
func (r *Repository) GetDiscussion(ctx context.Context, owner, repo string, number int, token string) (Discussion, error) {
	if err := validateRef(owner, repo, number); err != nil {
		return Discussion{}, err
	}
	var resp discussionResponse
	err := r.gql.Execute(ctx, token, getDiscussionQuery, map[string]any{
		"owner":  owner,
		"repo":   repo,
		"number": number,
		"first":  commentsPageSize,
	}, &resp)
	if err != nil {
		return Discussion{}, classify(err, "get discussion %s/%s#%d", owner, repo, number)
	}
	if resp.Repository == nil || resp.Repository.Discussion == nil {
		return Discussion{}, fmt.Errorf("get discussion %s/%s#%d: %w", owner, repo, number, ErrNotFound)
	}

	node := resp.Repository.Discussion
	comments := make([]Comment, 0, len(node.Comments.Edges))
	for _, edge := range node.Comments.Edges {
		comments = append(comments, edge.Node)
	}
	SortNewestFirst(comments)

	r.logger.Debug("discussion loaded", "owner", owner, "repo", repo, "number", number, "comments", len(comments))
	return Discussion{
		ID:       node.ID,
		Title:    node.Title,
		URL:      node.URL,
		Comments: comments,
	}, nil
}

// DiscussionID resolves the node id of a discussion by number.
func (r *Repository) DiscussionID(ctx context.Context, owner, repo string, number int, token string) (string, error) {
	if err := validateRef(owner, repo, number); err != nil {
		return "", err
	}
	var resp discussionIDResponse
	err := r.gql.Execute(ctx, token, getDiscussionIDQuery, map[string]any{
		"owner":  owner,
		"repo":   repo,
		"number": number,
	}, &resp)
	if err != nil {
		return "", classify(err, "resolve discussion %s/%s#%d", owner, repo, number)
	}
	if resp.Repository == nil || resp.Repository.Discussion == nil || resp.Repository.Discussion.ID == "" {
		return "", fmt.Errorf("resolve discussion %s/%s#%d: %w", owner, repo, number, ErrNotFound)
	}
	return resp.Repository.Discussion.ID, nil
}

// CreateComment appends a new comment to the discussion.
func (r *Repository) CreateComment(ctx context.Context, discussionID, body, token string) (Comment, error) {
	if strings.TrimSpace(discussionID) == "" {
		return Comment{}, fmt.Errorf("create comment: discussion id is required: %w", ErrInvalidArgument)
	}
	var resp addCommentResponse
	err := r.gql.Execute(ctx, token, addCommentMutation, map[string]any{
		"discussionId": discussionID,
		"body":         body,
	}, &resp)
	if err != nil {
		return Comment{}, classify(err, "create comment on %s", discussionID)
	}
	r.logger.Info("journal comment created", "discussion_id", discussionID, "comment_id", resp.AddDiscussionComment.Comment.ID)
	return resp.AddDiscussionComment.Comment, nil
}

// UpdateComment overwrites the body of a comment. The previous body is lost;
// concurrent writers are not detected.
func (r *Repository) UpdateComment(ctx context.Context, commentID, body, token string) (Comment, error) {
	if strings.TrimSpace(commentID) == "" {
		return Comment{}, fmt.Errorf("update comment: comment id is required: %w", ErrInvalidArgument)
	}
	var resp updateCommentResponse
	err := r.gql.Execute(ctx, token, updateCommentMutation, map[string]any{
		"commentId": commentID,
		"body":      body,
	}, &resp)
	if err != nil {
		return Comment{}, classify(err, "update comment %s", commentID)
	}
	comment := resp.UpdateDiscussionComment.Comment
	if comment.Body == "" {
		comment.Body = body
	}
	r.logger.Info("journal comment updated", "comment_id", commentID)
	return comment, nil
}

// RepositoryID resolves the node id of owner/repo.
func (r *Repository) RepositoryID(ctx context.Context, owner, repo, token string) (string, error) {
	var resp repositoryIDResponse
	err := r.gql.Execute(ctx, token, getRepositoryIDQuery, map[string]any{
		"owner": owner,
		"repo":  repo,
	}, &resp)
	if err != nil {
		return "", classify(err, "resolve repository %s/%s", owner, repo)
	}
	if resp.Repository == nil || resp.Repository.ID == "" {
		return "", fmt.Errorf("resolve repository %s/%s: %w", owner, repo, ErrNotFound)
	}
	return resp.Repository.ID, nil
}

// ResolveCategoryID looks up a discussion category by exact name among the
// first categories of the repository.
func (r *Repository) ResolveCategoryID(ctx context.Context, owner, repo, categoryName, token string) (string, error) {
	var resp categoriesResponse
	err := r.gql.Execute(ctx, token, getDiscussionCategoriesQuery, map[string]any{
		"owner": owner,
		"repo":  repo,
		"first": categoriesPageSize,
	}, &resp)
	if err != nil {
		return "", classify(err, "list discussion categories of %s/%s", owner, repo)
	}
	if resp.Repository == nil {
		return "", fmt.Errorf("list discussion categories of %s/%s: %w", owner, repo, ErrNotFound)
	}
	for _, category := range resp.Repository.DiscussionCategories.Nodes {
		if category.Name == categoryName {
			return category.ID, nil
		}
	}
	return "", fmt.Errorf("category %q in %s/%s: %w", categoryName, owner, repo, ErrCategoryNotFound)
}

// CreateDiscussion opens a new discussion thread. It is only used to
// bootstrap a journal.
func (r *Repository) CreateDiscussion(ctx context.Context, repositoryID, categoryID, title, body, token string) (Discussion, error) {
	if strings.TrimSpace(title) == "" {
		return Discussion{}, fmt.Errorf("create discussion: title is required: %w", ErrInvalidArgument)
	}
	var resp createDiscussionResponse
	err := r.gql.Execute(ctx, token, createDiscussionMutation, map[string]any{
		"repositoryId": repositoryID,
		"categoryId":   categoryID,
		"title":        title,
		"body":         body,
	}, &resp)
	if err != nil {
		return Discussion{}, classify(err, "create discussion %q", title)
	}
	created := resp.CreateDiscussion.Discussion
	r.logger.Info("journal discussion created", "discussion_id", created.ID, "url", created.URL)
	return created, nil
}

// Viewer returns the login that owns token.
func (r *Repository) Viewer(ctx context.Context, token string) (string, error) {
	var resp viewerResponse
	if err := r.gql.Execute(ctx, token, viewerQuery, nil, &resp); err != nil {
		return "", classify(err, "resolve viewer")
	}
	if resp.Viewer.Login == "" {
		return "", fmt.Errorf("resolve viewer: empty login: %w", ErrUnauthorized)
	}
	return resp.Viewer.Login, nil
}

// SortNewestFirst orders comments by creation time, newest first.
func SortNewestFirst(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
}

func validateRef(owner, repo string, number int) error {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return fmt.Errorf("owner and repo are required: %w", ErrInvalidArgument)
	}
	if number <= 0 {
		return fmt.Errorf("discussion number must be positive: %w", ErrInvalidArgument)
	}
	return nil
}

// classify tags err with the repository sentinel matching its kind while
// keeping the original error in the chain.
func classify(err error, format string, args ...any) error {
	op := fmt.Sprintf(format, args...)
	switch {
	case graphql.IsNotFound(err):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case graphql.IsUnauthorized(err):
		return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
