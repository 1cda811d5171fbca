// Package testutil 测试用的数据库、Redis、对象存储替身
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"Vid_Community/internal/config"
	"Vid_Community/internal/model"
	"Vid_Community/internal/pkg"
	"Vid_Community/internal/repository/mysql"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NewTestDB 每个测试独立的内存 SQLite，已完成建表
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := mysql.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString()),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, mysql.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func NewTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func JWTConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    time.Hour,
		RotateRefresh: true,
	}
}

func NewIssuer() *pkg.TokenIssuer {
	return pkg.NewTokenIssuer(JWTConfig())
}

// CreateUser 直接落库，密码为 username+"-pass"
func CreateUser(t *testing.T, db *gorm.DB, username string, staff bool) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(username+"-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{
		Username: username,
		Password: string(hash),
		Email:    username + "@example.com",
		IsStaff:  staff,
		IsActive: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// FakeStorage 内存对象存储
type FakeStorage struct {
	mu      sync.Mutex
	Objects map[string]int64
	Deleted []string
	SaveErr error
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{Objects: map[string]int64{}}
}

func (s *FakeStorage) Save(_ context.Context, dir string, fh *multipart.FileHeader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return "", s.SaveErr
	}
	key := pkg.ObjectKey(dir, fh.Filename)
	s.Objects[key] = fh.Size
	return key, nil
}

func (s *FakeStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	s.Deleted = append(s.Deleted, key)
	return nil
}

func (s *FakeStorage) URL(key string) string {
	if key == "" {
		return ""
	}
	return "http://media.test/media/" + key
}

func (s *FakeStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}

// FileHeader 构造一个真实的 multipart 文件头
func FileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	require.Len(t, form.File[field], 1)
	return form.File[field][0]
}

// PNG 1x1 的合法 PNG
func PNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}
