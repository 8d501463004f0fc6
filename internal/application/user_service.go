package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eagleapps/user-service/internal/domain/entity"
	repo "github.com/eagleapps/user-service/internal/domain/repository"
	"github.com/eagleapps/user-service/pkg/helpers"
	"github.com/eagleapps/user-service/pkg/mailer"
)

var (
	ErrDuplicateUser = errors.New("email or mobile already registered")
	ErrUserNotFound  = errors.New("user not found")
)

// Service orchestrates the user use cases on top of the repository.
// Redis, RabbitMQ, and Elasticsearch are optional collaborators: the cache,
// the welcome email, and the search index degrade to no-ops when nil, the
// persistence semantics never depend on them.
type Service struct {
	Repo         repo.UserRepository
	Redis        *redis.Client
	Rabbit       *helpers.RabbitPublisher
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
	CacheTTL     time.Duration
}

func NewService(r repo.UserRepository, rdb *redis.Client, rabbit *helpers.RabbitPublisher, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string, cacheTTL time.Duration) *Service {
	return &Service{
		Repo:         r,
		Redis:        rdb,
		Rabbit:       rabbit,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
		CacheTTL:     cacheTTL,
	}
}

func cacheKey(userID string) string {
	return "user:aggregate:" + userID
}

// Create runs the duplicate guard, persists the aggregate, and returns it
// read back through the query path so the caller observes exactly what was
// written, generated id and role ids included.
func (s *Service) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	exists, err := s.Repo.ExistsByEmailOrMobile(ctx, u.Email, u.Mobile)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateUser
	}

	id, err := s.Repo.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	created, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, created)
	_ = s.indexUser(ctx, created)
	s.publishWelcome(ctx, created)

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": id, "username": created.Username}).Info("user created")
	}
	return created, nil
}

func (s *Service) GetAll(ctx context.Context) ([]*entity.User, error) {
	return s.Repo.GetAll(ctx)
}

func (s *Service) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if s.Redis != nil {
		var cached entity.User
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, cacheKey(id), &cached); err == nil && ok {
			return &cached, nil
		}
	}
	u, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, u)
	return u, nil
}

// Update rewrites the parent scalars and fully replaces both child
// collections, then returns the reassembled aggregate.
func (s *Service) Update(ctx context.Context, u *entity.User) (*entity.User, error) {
	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	updated, err := s.Repo.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, updated)
	_ = s.indexUser(ctx, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.cacheDel(ctx, id)
	s.deleteFromIndex(ctx, id)
	if s.Logger != nil {
		s.Logger.WithField("user_id", id).Info("user deleted")
	}
	return nil
}

// GetByUsername serves the credential view consumed by the authentication
// collaborator. Never cached: stale login material is worse than a read.
func (s *Service) GetByUsername(ctx context.Context, username string) (*entity.CredentialView, error) {
	view, err := s.Repo.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdatePassword is deliberately decoupled from Update: a single-statement
// write touching only the password column.
func (s *Service) UpdatePassword(ctx context.Context, username, hash string) error {
	id, err := s.Repo.UpdatePassword(ctx, username, hash)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	s.cacheDel(ctx, id)
	if s.Logger != nil {
		s.Logger.WithField("user_id", id).Info("password updated")
	}
	return nil
}

func (s *Service) cacheSet(ctx context.Context, u *entity.User) {
	if s.Redis == nil {
		return
	}
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if err := helpers.RedisSetJSON(ctx, s.Redis, cacheKey(u.ID), u, ttl); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("cache set failed")
	}
}

func (s *Service) cacheDel(ctx context.Context, id string) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, cacheKey(id)); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", id).Warn("cache del failed")
	}
}

func (s *Service) publishWelcome(ctx context.Context, u *entity.User) {
	if s.Rabbit == nil {
		return
	}
	job := mailer.EmailJob{To: u.Email, Fullname: u.Fullname, Username: u.Username, UserID: u.ID}
	if err := s.Rabbit.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("welcome email publish failed")
	}
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"fullname":   u.Fullname,
		"email":      u.Email,
		"mobile":     u.Mobile,
		"active":     u.Active,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}

func (s *Service) deleteFromIndex(ctx context.Context, id string) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// SearchUsers performs a simple multi_match search on username, fullname, and email.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "fullname", "email"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
