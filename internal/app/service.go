package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"linkboard/api/internal/auth"
	"linkboard/api/internal/authpw"
	"linkboard/api/internal/config"
	"linkboard/api/internal/export"
	"linkboard/api/internal/icons"
	"linkboard/api/internal/order"
	"linkboard/api/internal/page"
	"linkboard/api/internal/rolecheck"
	"linkboard/api/internal/search"
	"linkboard/api/internal/session"
	"linkboard/api/internal/snapshot"
	"linkboard/api/internal/store"
	"linkboard/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       int64
	Username     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// CategoryView is the caller-facing shape of a category.
type CategoryView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// LinkView is the caller-facing shape of a link.
type LinkView struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"categoryId"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Icon       string `json:"icon,omitempty"`
	SortOrder  int    `json:"sortOrder"`
}

// CategoryLinksPage is one page of a category's links.
type CategoryLinksPage struct {
	Category CategoryView `json:"category"`
	Links    []LinkView   `json:"links"`
	Page     page.Window  `json:"page"`
}

// GroupedCategory is a category with all of its links, used by the
// whole-board view.
type GroupedCategory struct {
	CategoryView
	Links []LinkView `json:"links"`
}

// LinkInput carries create/update fields for a link. Icon distinguishes
// absent (nil, keep current) from empty (clear back to the default).
type LinkInput struct {
	Name       string  `json:"name"`
	URL        string  `json:"url"`
	Icon       *string `json:"icon"`
	CategoryID int64   `json:"categoryId"`
}

// UserView is the admin-facing shape of an account.
type UserView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type dataStore interface {
	CreateUser(context.Context, store.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	GetUserByID(context.Context, int64) (store.User, error)
	ListUsers(context.Context) ([]store.User, error)
	SetUserStatus(context.Context, int64, string) error
	DeleteUserCascade(context.Context, int64) error

	SaveRefreshSession(context.Context, string, int64, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	ListCategories(context.Context, int64) ([]store.Category, error)
	GetCategory(context.Context, int64, int64) (store.Category, error)
	InsertCategory(context.Context, store.Category) (int64, error)
	RenameCategory(context.Context, int64, int64, string) error
	DeleteCategoryCascade(context.Context, int64, int64) error
	ApplyCategoryOrder(context.Context, int64, []order.Move) error

	ListLinks(context.Context, int64, int64) ([]store.Link, error)
	ListLinksPage(context.Context, int64, int64, int, int) ([]store.Link, error)
	CountLinks(context.Context, int64, int64) (int, error)
	ListLinksByOwner(context.Context, int64) ([]store.Link, error)
	GetLink(context.Context, int64, int64) (store.Link, error)
	InsertLink(context.Context, store.Link) (int64, error)
	UpdateLink(context.Context, store.Link) error
	UpdateLinkIcon(context.Context, int64, int64, string) error
	DeleteLink(context.Context, int64, int64) error
	ApplyLinkOrder(context.Context, int64, int64, []order.Move) error

	Ping(ctx context.Context) error
}

// sessionStore is the refresh token backend. Redis when configured,
// otherwise Postgres via pgSessions.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// iconStore is the object storage backend for uploaded link icons.
type iconStore interface {
	PutIcon(ctx context.Context, userID, linkID int64, contentType string, body io.Reader, size int64) (string, error)
	RemoveIcon(ctx context.Context, userID, linkID int64) error
}

// pgSessions adapts the primary store to the sessionStore interface.
type pgSessions struct {
	store dataStore
}

func (p pgSessions) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	return p.store.SaveRefreshSession(ctx, tokenHash, user.ID, expiresAt)
}

func (p pgSessions) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	return p.store.LookupRefreshSession(ctx, tokenHash)
}

func (p pgSessions) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return p.store.RevokeRefreshSession(ctx, tokenHash)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	passwords *authpw.Service
	search    *search.Service
	snapshots *snapshot.Service
	exporter  *export.Service
	icons     iconStore
}

func New(cfg config.Config, dataStore *store.PostgresStore, searchService *search.Service, snapshots *snapshot.Service, exporter *export.Service, iconStore *icons.Store) *Service {
	service := &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  pgSessions{store: dataStore},
		passwords: authpw.NewService(dataStore),
		search:    searchService,
		snapshots: snapshots,
		exporter:  exporter,
	}
	if iconStore != nil {
		service.icons = iconStore
	}
	return service
}

func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore, searchService *search.Service, snapshots *snapshot.Service, exporter *export.Service, iconStore *icons.Store) *Service {
	service := New(cfg, dataStore, searchService, snapshots, exporter, iconStore)
	service.sessions = sessions
	return service
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap creates the admin account on first start. Without an admin
// password configured there is no way to sign in, so we only log.
func (s *Service) Bootstrap(ctx context.Context) error {
	username := strings.TrimSpace(s.cfg.AdminUsername)
	if username == "" || s.cfg.AdminPassword == "" {
		log.Printf("bootstrap: admin credentials not configured, skipping admin account creation")
		return nil
	}

	_, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("look up admin account: %w", err)
	}

	if _, err := s.passwords.CreateUser(ctx, username, s.cfg.AdminPassword, store.RoleAdmin); err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}
	log.Printf("bootstrap: created admin account %q", username)
	return nil
}

func (s *Service) SignIn(ctx context.Context, username, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	cached, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}

	// Re-read the account so a disable since the last refresh sticks.
	user, err := s.store.GetUserByID(ctx, cached.ID)
	if err != nil {
		return Session{}, err
	}
	if user.Status != store.UserStatusActive {
		return Session{}, authpw.ErrAccountDisabled
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:      user.ID,
		Username: user.Username,
		Role:     user.Role,
		JTI:      jti,
		Exp:      expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}
	if user.Status != store.UserStatusActive {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, sess Session, refreshToken string) error {
	if sess.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, sess.JTI, sess.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rolecheck.Action) bool {
	return rolecheck.Can(rolecheck.Normalize(role), action)
}

// Categories

func (s *Service) ListCategories(ctx context.Context, userID int64) ([]CategoryView, error) {
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	return categoryViews(categories), nil
}

// CreateCategory adds a category for the user. A nil sortOrder appends at
// the end of the list; a caller-supplied ordinal places it directly.
func (s *Service) CreateCategory(ctx context.Context, userID int64, name string, sortOrder *int) (CategoryView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CategoryView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}

	var nextOrder int
	if sortOrder != nil {
		nextOrder = *sortOrder
	} else {
		categories, err := s.store.ListCategories(ctx, userID)
		if err != nil {
			return CategoryView{}, err
		}
		nextOrder = order.Step
		if len(categories) > 0 {
			nextOrder = categories[len(categories)-1].SortOrder + order.Step
		}
	}

	id, err := s.store.InsertCategory(ctx, store.Category{
		OwnerUserID: userID,
		Name:        name,
		SortOrder:   nextOrder,
	})
	if err != nil {
		return CategoryView{}, err
	}

	s.commitSnapshot(ctx, userID, "Create category "+name)
	return CategoryView{ID: id, Name: name, SortOrder: nextOrder}, nil
}

func (s *Service) RenameCategory(ctx context.Context, userID, categoryID int64, name string) (CategoryView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CategoryView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}

	if err := s.store.RenameCategory(ctx, userID, categoryID, name); err != nil {
		return CategoryView{}, err
	}
	category, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return CategoryView{}, err
	}

	s.commitSnapshot(ctx, userID, "Rename category to "+name)
	return categoryView(category), nil
}

func (s *Service) DeleteCategory(ctx context.Context, userID, categoryID int64) error {
	links, err := s.store.ListLinks(ctx, userID, categoryID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteCategoryCascade(ctx, userID, categoryID); err != nil {
		return err
	}

	for _, link := range links {
		s.removeIcon(ctx, link)
		if s.search != nil {
			s.search.DeleteLink(link.ID)
		}
	}
	s.commitSnapshot(ctx, userID, "Delete category")
	return nil
}

// ReorderCategories moves sourceID before or after targetID within the
// user's category list and returns the resulting order.
func (s *Service) ReorderCategories(ctx context.Context, userID, sourceID, targetID int64, position string) ([]CategoryView, error) {
	pos, ok := order.ParsePosition(position)
	if !ok {
		return nil, fmt.Errorf("%w: position %q", order.ErrInvalidReorder, position)
	}

	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]order.Entry, 0, len(categories))
	for _, c := range categories {
		entries = append(entries, order.Entry{ID: c.ID, Ordinal: c.SortOrder})
	}

	moves, err := order.PlanMove(entries, sourceID, targetID, pos)
	if err != nil {
		return nil, err
	}
	if len(moves) > 0 {
		if err := s.store.ApplyCategoryOrder(ctx, userID, moves); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.commitSnapshot(ctx, userID, "Reorder categories")
	return categoryViews(updated), nil
}

// Links

// CategoryLinks returns one page of a category's links. An out-of-range page
// is clamped, never an error.
func (s *Service) CategoryLinks(ctx context.Context, userID, categoryID int64, requestedPage int) (CategoryLinksPage, error) {
	category, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return CategoryLinksPage{}, err
	}

	total, err := s.store.CountLinks(ctx, userID, categoryID)
	if err != nil {
		return CategoryLinksPage{}, err
	}

	window := page.Compute(total, requestedPage, s.cfg.LinksPerPage)
	links, err := s.store.ListLinksPage(ctx, userID, categoryID, window.Limit(), window.Offset())
	if err != nil {
		return CategoryLinksPage{}, err
	}

	return CategoryLinksPage{
		Category: categoryView(category),
		Links:    linkViews(links),
		Page:     window,
	}, nil
}

// LinksGrouped returns every category with all of its links, both levels in
// display order.
func (s *Service) LinksGrouped(ctx context.Context, userID int64) ([]GroupedCategory, error) {
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	links, err := s.store.ListLinksByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[int64][]LinkView, len(categories))
	for _, link := range links {
		byCategory[link.CategoryID] = append(byCategory[link.CategoryID], linkView(link))
	}

	groups := make([]GroupedCategory, 0, len(categories))
	for _, category := range categories {
		group := GroupedCategory{CategoryView: categoryView(category), Links: byCategory[category.ID]}
		if group.Links == nil {
			group.Links = []LinkView{}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (s *Service) CreateLink(ctx context.Context, userID int64, in LinkInput) (LinkView, error) {
	if err := validateLinkInput(in); err != nil {
		return LinkView{}, err
	}

	if _, err := s.store.GetCategory(ctx, userID, in.CategoryID); err != nil {
		return LinkView{}, err
	}

	links, err := s.store.ListLinks(ctx, userID, in.CategoryID)
	if err != nil {
		return LinkView{}, err
	}
	nextOrder := order.Step
	if len(links) > 0 {
		nextOrder = links[len(links)-1].SortOrder + order.Step
	}

	icon := ""
	if in.Icon != nil {
		icon = strings.TrimSpace(*in.Icon)
	}
	link := store.Link{
		OwnerUserID: userID,
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		URL:         strings.TrimSpace(in.URL),
		Icon:        icon,
		SortOrder:   nextOrder,
	}
	id, err := s.store.InsertLink(ctx, link)
	if err != nil {
		return LinkView{}, err
	}
	link.ID = id

	s.indexLink(link)
	s.commitSnapshot(ctx, userID, "Add link "+link.Name)
	return linkView(link), nil
}

func (s *Service) UpdateLink(ctx context.Context, userID, linkID int64, in LinkInput) (LinkView, error) {
	if err := validateLinkInput(in); err != nil {
		return LinkView{}, err
	}

	current, err := s.store.GetLink(ctx, userID, linkID)
	if err != nil {
		return LinkView{}, err
	}

	updated := current
	updated.Name = strings.TrimSpace(in.Name)
	updated.URL = strings.TrimSpace(in.URL)
	if in.Icon != nil {
		updated.Icon = strings.TrimSpace(*in.Icon)
	}

	if in.CategoryID != current.CategoryID {
		// A moved link lands at the end of the target category.
		if _, err := s.store.GetCategory(ctx, userID, in.CategoryID); err != nil {
			return LinkView{}, err
		}
		targetLinks, err := s.store.ListLinks(ctx, userID, in.CategoryID)
		if err != nil {
			return LinkView{}, err
		}
		updated.CategoryID = in.CategoryID
		updated.SortOrder = order.Step
		if len(targetLinks) > 0 {
			updated.SortOrder = targetLinks[len(targetLinks)-1].SortOrder + order.Step
		}
	}

	if err := s.store.UpdateLink(ctx, updated); err != nil {
		return LinkView{}, err
	}
	if current.Icon != "" && updated.Icon == "" {
		s.removeIcon(ctx, current)
	}

	s.indexLink(updated)
	s.commitSnapshot(ctx, userID, "Update link "+updated.Name)
	return linkView(updated), nil
}

func (s *Service) DeleteLink(ctx context.Context, userID, linkID int64) error {
	link, err := s.store.GetLink(ctx, userID, linkID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteLink(ctx, userID, linkID); err != nil {
		return err
	}
	s.removeIcon(ctx, link)
	if s.search != nil {
		s.search.DeleteLink(linkID)
	}
	s.commitSnapshot(ctx, userID, "Delete link")
	return nil
}

// ReorderLinks moves sourceID before or after targetID within one category
// and returns the category's resulting order.
func (s *Service) ReorderLinks(ctx context.Context, userID, categoryID, sourceID, targetID int64, position string) ([]LinkView, error) {
	pos, ok := order.ParsePosition(position)
	if !ok {
		return nil, fmt.Errorf("%w: position %q", order.ErrInvalidReorder, position)
	}

	if _, err := s.store.GetCategory(ctx, userID, categoryID); err != nil {
		return nil, err
	}

	links, err := s.store.ListLinks(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}

	entries := make([]order.Entry, 0, len(links))
	for _, link := range links {
		entries = append(entries, order.Entry{ID: link.ID, Ordinal: link.SortOrder})
	}

	moves, err := order.PlanMove(entries, sourceID, targetID, pos)
	if err != nil {
		return nil, err
	}
	if len(moves) > 0 {
		if err := s.store.ApplyLinkOrder(ctx, userID, categoryID, moves); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.ListLinks(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}

	s.commitSnapshot(ctx, userID, "Reorder links")
	return linkViews(updated), nil
}

// Search

func (s *Service) SearchLinks(userID int64, text string, limit int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.search.Search(search.Query{UserID: userID, Text: text, Limit: limit})
}

// Export

func (s *Service) ExportPDF(ctx context.Context, userID int64, username string) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}

	groups, err := s.LinksGrouped(ctx, userID)
	if err != nil {
		return nil, err
	}

	sheet := export.Sheet{Owner: username, GeneratedAt: time.Now()}
	for _, group := range groups {
		category := export.SheetCategory{Name: group.Name}
		for _, link := range group.Links {
			category.Links = append(category.Links, export.SheetLink{Name: link.Name, URL: link.URL})
		}
		sheet.Categories = append(sheet.Categories, category)
	}
	return s.exporter.ExportPDF(sheet)
}

// History

func (s *Service) SnapshotHistory(userID int64, limit int) ([]snapshot.CommitInfo, error) {
	if s.snapshots == nil {
		return []snapshot.CommitInfo{}, nil
	}
	return s.snapshots.History(userID, limit)
}

// Icons

func (s *Service) UploadIcon(ctx context.Context, userID, linkID int64, contentType string, body io.Reader, size int64) (LinkView, error) {
	if s.icons == nil {
		return LinkView{}, domainError(http.StatusServiceUnavailable, "ICONS_UNAVAILABLE", "Icon storage is not configured", nil)
	}

	link, err := s.store.GetLink(ctx, userID, linkID)
	if err != nil {
		return LinkView{}, err
	}

	iconURL, err := s.icons.PutIcon(ctx, userID, linkID, contentType, body, size)
	if err != nil {
		if errors.Is(err, icons.ErrUnsupportedType) {
			return LinkView{}, domainError(http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", err.Error(), nil)
		}
		return LinkView{}, err
	}

	if err := s.store.UpdateLinkIcon(ctx, userID, linkID, iconURL); err != nil {
		return LinkView{}, err
	}
	link.Icon = iconURL

	s.indexLink(link)
	return linkView(link), nil
}

// Admin users

func (s *Service) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]UserView, 0, len(users))
	for _, user := range users {
		views = append(views, userView(user))
	}
	return views, nil
}

func (s *Service) CreateUser(ctx context.Context, username, password, role string) (UserView, error) {
	id, err := s.passwords.CreateUser(ctx, username, password, role)
	if err != nil {
		return UserView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return UserView{}, err
	}
	return userView(user), nil
}

func (s *Service) SetUserStatus(ctx context.Context, userID int64, status string) (UserView, error) {
	if status != store.UserStatusActive && status != store.UserStatusDisabled {
		return UserView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("unknown status %q", status), nil)
	}
	if err := s.store.SetUserStatus(ctx, userID, status); err != nil {
		return UserView{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return UserView{}, err
	}
	return userView(user), nil
}

// DeleteUser removes an account and everything it owns.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "cannot delete your own account", nil)
	}

	links, err := s.store.ListLinksByOwner(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteUserCascade(ctx, userID); err != nil {
		return err
	}

	for _, link := range links {
		s.removeIcon(ctx, link)
		if s.search != nil {
			s.search.DeleteLink(link.ID)
		}
	}
	return nil
}

// helpers

func validateLinkInput(in LinkInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	raw := strings.TrimSpace(in.URL)
	if raw == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "url is required", nil)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "url must be absolute http or https", nil)
	}
	if in.CategoryID == 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "categoryId is required", nil)
	}
	return nil
}

// removeIcon drops the stored icon object for a link whose row is gone or
// whose icon was cleared. Best effort: the row change already happened.
func (s *Service) removeIcon(ctx context.Context, link store.Link) {
	if s.icons == nil || link.Icon == "" {
		return
	}
	if err := s.icons.RemoveIcon(ctx, link.OwnerUserID, link.ID); err != nil {
		log.Printf("icons: remove for link %d: %v", link.ID, err)
	}
}

func (s *Service) indexLink(link store.Link) {
	if s.search == nil {
		return
	}
	s.search.IndexLink(search.LinkRecord{
		ID:         link.ID,
		UserID:     link.OwnerUserID,
		CategoryID: link.CategoryID,
		Name:       link.Name,
		URL:        link.URL,
		Icon:       link.Icon,
	})
}

// commitSnapshot records the user's full bookmark tree after a mutation. The
// tree is read synchronously so it reflects this request, the commit itself
// runs in the background.
func (s *Service) commitSnapshot(ctx context.Context, userID int64, message string) {
	if s.snapshots == nil {
		return
	}

	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		log.Printf("snapshot: list categories for user %d: %v", userID, err)
		return
	}
	links, err := s.store.ListLinksByOwner(ctx, userID)
	if err != nil {
		log.Printf("snapshot: list links for user %d: %v", userID, err)
		return
	}

	byCategory := make(map[int64][]snapshot.LinkLeaf, len(categories))
	for _, link := range links {
		byCategory[link.CategoryID] = append(byCategory[link.CategoryID], snapshot.LinkLeaf{
			LinkID: link.ID,
			Name:   link.Name,
			URL:    link.URL,
			Icon:   link.Icon,
		})
	}

	tree := make([]snapshot.CategoryTree, 0, len(categories))
	for _, category := range categories {
		tree = append(tree, snapshot.CategoryTree{
			CategoryID: category.ID,
			Name:       category.Name,
			Links:      byCategory[category.ID],
		})
	}

	actor := fmt.Sprintf("user-%d", userID)
	go func() {
		if _, err := s.snapshots.Commit(userID, tree, actor, message); err != nil {
			log.Printf("snapshot: commit for user %d: %v", userID, err)
		}
	}()
}

func categoryView(c store.Category) CategoryView {
	return CategoryView{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder}
}

func categoryViews(categories []store.Category) []CategoryView {
	views := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, categoryView(c))
	}
	return views
}

func linkView(l store.Link) LinkView {
	return LinkView{
		ID:         l.ID,
		CategoryID: l.CategoryID,
		Name:       l.Name,
		URL:        l.URL,
		Icon:       l.Icon,
		SortOrder:  l.SortOrder,
	}
}

func linkViews(links []store.Link) []LinkView {
	views := make([]LinkView, 0, len(links))
	for _, l := range links {
		views = append(views, linkView(l))
	}
	return views
}

func userView(u store.User) UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}
