package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gitjournal/api/internal/auth"
	"gitjournal/api/internal/config"
	"gitjournal/api/internal/digest"
	"gitjournal/api/internal/discussion"
	"gitjournal/api/internal/journal"
	"gitjournal/api/internal/rbac"
	"gitjournal/api/internal/session"
	"gitjournal/api/internal/util"
)

// DiscussionRepository is the GitHub side of the journal; *discussion.Repository
// satisfies it.
type DiscussionRepository interface {
	GetDiscussion(ctx context.Context, owner, repo string, number int, token string) (discussion.Discussion, error)
	DiscussionID(ctx context.Context, owner, repo string, number int, token string) (string, error)
	CreateComment(ctx context.Context, discussionID, body, token string) (discussion.Comment, error)
	UpdateComment(ctx context.Context, commentID, body, token string) (discussion.Comment, error)
	RepositoryID(ctx context.Context, owner, repo, token string) (string, error)
	ResolveCategoryID(ctx context.Context, owner, repo, categoryName, token string) (string, error)
	CreateDiscussion(ctx context.Context, repositoryID, categoryID, title, body, token string) (discussion.Discussion, error)
	Viewer(ctx context.Context, token string) (string, error)
}

type DigestFetcher interface {
	Fetch(ctx context.Context, req digest.Request) (string, error)
}

// SessionStore keeps server-side sessions and preferences; *session.RedisStore
// satisfies it.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, sess session.Session, ttl time.Duration) error
	Lookup(ctx context.Context, sessionID string) (session.Session, error)
	Revoke(ctx context.Context, sessionID string) error
	LoadPreferences(ctx context.Context, login string) (session.Preferences, error)
	SavePreferences(ctx context.Context, login string, prefs session.Preferences) error
	Ping(ctx context.Context) error
}

type Service struct {
	cfg      config.Config
	repo     DiscussionRepository
	digest   DigestFetcher
	sessions SessionStore
	gate     *session.Gate
	locks    *commentLocks
	logger   *slog.Logger
	now      func() time.Time
}

func New(cfg config.Config, repo DiscussionRepository, digestClient DigestFetcher, sessions SessionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 30 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	return &Service{
		cfg:      cfg,
		repo:     repo,
		digest:   digestClient,
		sessions: sessions,
		gate:     session.NewGate(cfg.SessionSecret, sessions),
		locks:    newCommentLocks(),
		logger:   logger,
		now:      time.Now,
	}
}

type LoginResult struct {
	Token     string    `json:"token"`
	Login     string    `json:"login"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DiscussionView is a discussion whose comments carry their derived sections.
type DiscussionView struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	URL      string        `json:"url"`
	Comments []CommentView `json:"comments"`
}

type CommentView struct {
	discussion.Comment
	EntryDate string            `json:"entryDate,omitempty"`
	Sections  []journal.Section `json:"sections"`
}

// DigestView is the activity digest offered next to a section being edited.
// A failed fetch is reported here instead of failing the edit.
type DigestView struct {
	Available bool   `json:"available"`
	Empty     bool   `json:"empty"`
	Text      string `json:"text,omitempty"`
	SinceDate string `json:"sinceDate,omitempty"`
	Message   string `json:"message,omitempty"`
}

type EditView struct {
	SectionIndex int        `json:"sectionIndex"`
	Heading      string     `json:"heading"`
	EditBody     string     `json:"editBody"`
	Digest       DigestView `json:"digest"`
}

type SaveResult struct {
	Comment  discussion.Comment `json:"comment"`
	Sections []journal.Section  `json:"sections"`
}

// Login verifies accessToken against GitHub and opens a server-side session.
func (s *Service) Login(ctx context.Context, accessToken string) (LoginResult, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return LoginResult{}, session.ErrUnauthenticated
	}
	login, err := s.repo.Viewer(ctx, accessToken)
	if err != nil {
		if errors.Is(err, discussion.ErrUnauthorized) {
			return LoginResult{}, fmt.Errorf("%w: %w", session.ErrUnauthenticated, err)
		}
		return LoginResult{}, err
	}

	sessionID := util.NewID("sess")
	// Session expiry follows the wall clock; s.now only dates entries.
	expiresAt := time.Now().Add(s.cfg.SessionTTL).UTC()
	if err := s.sessions.Save(ctx, sessionID, session.Session{AccessToken: accessToken, Login: login}, s.cfg.SessionTTL); err != nil {
		return LoginResult{}, err
	}
	token, err := auth.IssueToken([]byte(s.cfg.SessionSecret), auth.Claims{
		Login:     login,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		_ = s.sessions.Revoke(ctx, sessionID)
		return LoginResult{}, err
	}
	s.logger.Info("session opened", "login", login)
	return LoginResult{Token: token, Login: login, ExpiresAt: expiresAt}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, bearer string) (session.Session, error) {
	return s.gate.Resolve(ctx, bearer)
}

// Logout revokes the session behind bearer. Unknown or expired tokens are ignored.
func (s *Service) Logout(ctx context.Context, bearer string) error {
	claims, err := auth.ParseToken([]byte(s.cfg.SessionSecret), bearer)
	if err != nil {
		return nil
	}
	return s.sessions.Revoke(ctx, claims.SessionID)
}

// Viewer reports which GitHub login owns the session's token.
func (s *Service) Viewer(ctx context.Context, sess session.Session) (string, error) {
	token, err := s.tokenFor(sess, rbac.ActionRead)
	if err != nil {
		return "", err
	}
	return s.repo.Viewer(ctx, token)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

func (s *Service) LoadDiscussion(ctx context.Context, sess session.Session, owner, repo string, number int) (DiscussionView, error) {
	token, err := s.tokenFor(sess, rbac.ActionRead)
	if err != nil {
		return DiscussionView{}, err
	}
	d, err := s.repo.GetDiscussion(ctx, owner, repo, number, token)
	if err != nil {
		return DiscussionView{}, err
	}
	view := DiscussionView{
		ID:       d.ID,
		Title:    d.Title,
		URL:      d.URL,
		Comments: make([]CommentView, 0, len(d.Comments)),
	}
	for _, c := range d.Comments {
		view.Comments = append(view.Comments, commentView(c))
	}
	return view, nil
}

func commentView(c discussion.Comment) CommentView {
	view := CommentView{Comment: c, Sections: journal.Split(c.Body)}
	if date, ok := journal.EntryDate(c.Body); ok {
		view.EntryDate = date.Format(journal.DayLayout)
	}
	return view
}

// BeginEdit opens section index of body for editing and fetches the activity
// digest for the day before the entry date.
func (s *Service) BeginEdit(ctx context.Context, sess session.Session, body string, index int, settingsGistID string) (EditView, error) {
	if _, err := s.tokenFor(sess, rbac.ActionWrite); err != nil {
		return EditView{}, err
	}
	sections := journal.Split(body)
	if index <= 0 || index >= len(sections) {
		return EditView{}, fmt.Errorf("begin edit of section %d of %d: %w", index, len(sections), journal.ErrIndexOutOfRange)
	}
	return EditView{
		SectionIndex: index,
		Heading:      sections[index].Heading,
		EditBody:     journal.SectionBody(sections[index]),
		Digest:       s.previousDayDigest(ctx, sess, body, settingsGistID),
	}, nil
}

func (s *Service) previousDayDigest(ctx context.Context, sess session.Session, body, settingsGistID string) DigestView {
	date, ok := journal.EntryDate(body)
	if !ok {
		return DigestView{Message: "entry has no YYYY/MM/DD date line"}
	}
	day := journal.PreviousDay(date)
	token, err := s.tokenFor(sess, rbac.ActionDigest)
	if err != nil {
		return DigestView{SinceDate: day, Message: err.Error()}
	}
	text, err := s.digest.Fetch(ctx, digest.Request{
		Token:          token,
		SettingsGistID: settingsGistID,
		SinceDate:      day,
		UntilDate:      day,
	})
	if err != nil {
		s.logger.Warn("activity digest unavailable", "day", day, "err", err)
		return DigestView{SinceDate: day, Message: err.Error()}
	}
	if strings.TrimSpace(text) == "" {
		return DigestView{Available: true, Empty: true, SinceDate: day}
	}
	return DigestView{Available: true, Text: text, SinceDate: day}
}

// SaveSection replaces the body of section index in body and writes the result
// back to commentID.
func (s *Service) SaveSection(ctx context.Context, sess session.Session, commentID, body string, index int, text string) (SaveResult, error) {
	token, err := s.tokenFor(sess, rbac.ActionWrite)
	if err != nil {
		return SaveResult{}, err
	}
	sections, err := journal.ReplaceSectionBody(journal.Split(body), index, text)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save section %d: %w", index, err)
	}
	comment, err := s.writeComment(ctx, token, commentID, journal.Join(sections))
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{Comment: comment, Sections: journal.Split(comment.Body)}, nil
}

func (s *Service) UpdateComment(ctx context.Context, sess session.Session, commentID, body string) (discussion.Comment, error) {
	token, err := s.tokenFor(sess, rbac.ActionWrite)
	if err != nil {
		return discussion.Comment{}, err
	}
	return s.writeComment(ctx, token, commentID, body)
}

// writeComment waits for its turn on commentID, then performs the update
// detached from ctx so a departing caller cannot abort a write in flight.
func (s *Service) writeComment(ctx context.Context, token, commentID, body string) (discussion.Comment, error) {
	if strings.TrimSpace(commentID) == "" {
		return discussion.Comment{}, invalidParameters("commentId is required")
	}
	release, err := s.locks.acquire(ctx, commentID)
	if err != nil {
		return discussion.Comment{}, fmt.Errorf("wait for comment %s: %w", commentID, err)
	}
	defer release()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SaveTimeout)
	defer cancel()

	comment, err := s.repo.UpdateComment(saveCtx, commentID, body, token)
	if err != nil {
		return discussion.Comment{}, err
	}
	if ctx.Err() != nil {
		s.logger.Info("comment saved after caller left", "comment_id", commentID)
	}
	return comment, nil
}

func (s *Service) AddComment(ctx context.Context, sess session.Session, owner, repo string, number int, body string) (discussion.Comment, error) {
	token, err := s.tokenFor(sess, rbac.ActionComment)
	if err != nil {
		return discussion.Comment{}, err
	}
	if strings.TrimSpace(body) == "" {
		return discussion.Comment{}, invalidParameters("body is required")
	}
	discussionID, err := s.repo.DiscussionID(ctx, owner, repo, number, token)
	if err != nil {
		return discussion.Comment{}, err
	}
	return s.repo.CreateComment(ctx, discussionID, body, token)
}

// NewEntry posts a dated entry built from template, or from the caller's saved
// template when template is empty.
func (s *Service) NewEntry(ctx context.Context, sess session.Session, owner, repo string, number int, template string) (CommentView, error) {
	if _, err := s.tokenFor(sess, rbac.ActionComment); err != nil {
		return CommentView{}, err
	}
	if strings.TrimSpace(template) == "" && sess.Login != "" {
		prefs, err := s.sessions.LoadPreferences(ctx, sess.Login)
		if err != nil {
			return CommentView{}, err
		}
		template = prefs.Template
	}
	body, err := journal.NewEntryBody(s.now(), template)
	if err != nil {
		return CommentView{}, err
	}
	comment, err := s.AddComment(ctx, sess, owner, repo, number, body)
	if err != nil {
		return CommentView{}, err
	}
	return commentView(comment), nil
}

// CreateThread creates the journal discussion in the configured repository.
// The caller's token is preferred; the configured static token is the fallback.
func (s *Service) CreateThread(ctx context.Context, sess session.Session, title, body string) (discussion.Discussion, error) {
	token, err := s.tokenFor(sess, rbac.ActionBootstrap)
	if err != nil {
		return discussion.Discussion{}, err
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(body) == "" {
		return discussion.Discussion{}, invalidParameters("title and body are required")
	}
	owner, repo, err := s.cfg.Repository()
	if err != nil {
		return discussion.Discussion{}, domainError(http.StatusServiceUnavailable, "NOT_CONFIGURED", err.Error(), nil)
	}

	repositoryID, err := s.repo.RepositoryID(ctx, owner, repo, token)
	if err != nil {
		return discussion.Discussion{}, err
	}
	categoryID, err := s.repo.ResolveCategoryID(ctx, owner, repo, s.cfg.CategoryName, token)
	if err != nil {
		return discussion.Discussion{}, err
	}
	created, err := s.repo.CreateDiscussion(ctx, repositoryID, categoryID, title, body, token)
	if err != nil {
		return discussion.Discussion{}, err
	}
	s.logger.Info("journal thread created", "repo", owner+"/"+repo, "url", created.URL)
	return created, nil
}

// tokenFor picks the GitHub token for action: the session's own token, else the
// static token when the policy lets it stand in.
func (s *Service) tokenFor(sess session.Session, action rbac.Action) (string, error) {
	if sess.Present() && rbac.Can(rbac.CredentialSession, action) {
		return sess.AccessToken, nil
	}
	static := strings.TrimSpace(s.cfg.GitHubToken)
	if static != "" && rbac.Can(rbac.CredentialStatic, action) {
		return static, nil
	}
	return "", session.ErrUnauthenticated
}

func (s *Service) Digest(ctx context.Context, sess session.Session, settingsGistID, sinceDate, untilDate string) (string, error) {
	token, err := s.tokenFor(sess, rbac.ActionDigest)
	if err != nil {
		return "", err
	}
	return s.digest.Fetch(ctx, digest.Request{
		Token:          token,
		SettingsGistID: settingsGistID,
		SinceDate:      sinceDate,
		UntilDate:      untilDate,
	})
}

func (s *Service) Preferences(ctx context.Context, sess session.Session) (session.Preferences, error) {
	if err := s.requireLogin(sess); err != nil {
		return session.Preferences{}, err
	}
	return s.sessions.LoadPreferences(ctx, sess.Login)
}

func (s *Service) SavePreferences(ctx context.Context, sess session.Session, prefs session.Preferences) (session.Preferences, error) {
	if err := s.requireLogin(sess); err != nil {
		return session.Preferences{}, err
	}
	if prefs.DiscussionNumber < 0 {
		return session.Preferences{}, invalidParameters("discussionNumber must not be negative")
	}
	prefs.Owner = strings.TrimSpace(prefs.Owner)
	prefs.Repo = strings.TrimSpace(prefs.Repo)
	if err := s.sessions.SavePreferences(ctx, sess.Login, prefs); err != nil {
		return session.Preferences{}, err
	}
	return prefs, nil
}

// requireLogin gates preferences, which are keyed by the session's login.
func (s *Service) requireLogin(sess session.Session) error {
	if _, err := s.tokenFor(sess, rbac.ActionPreferences); err != nil {
		return err
	}
	if strings.TrimSpace(sess.Login) == "" {
		return fmt.Errorf("session has no login: %w", session.ErrUnauthenticated)
	}
	return nil
}
