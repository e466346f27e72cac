// Package driverator wraps the Google Drive API with a handle bound to a
// single remote file, backed by a persistent metadata cache with day-based
// expiry to avoid redundant round trips.
package driverator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/typ.v4/slices"
)

// DefaultTTL is the cache time-to-live in days when Config.TTL is nil.
const DefaultTTL = 7

const defaultCachePath = "data/driverator/cache.db"

// handleState tracks where the handle is in its lifecycle. Operations are
// valid only in specific states rather than inferred from which fields are
// set.
type handleState int

const (
	stateUnresolved handleState = iota
	statePending                // resolved by name, remote file does not exist yet
	stateBound
	stateTrashed
	stateDeleted
)

// Config identifies the remote file and tunes the cache. Either FileID or
// FileName is required; FolderID/FolderName scope a name search and become
// the parent of a file created by Upload.
type Config struct {
	ServiceAccountFile string
	FileID             string
	FileName           string
	FolderID           string
	FolderName         string

	// ClearCache empties the entire cache store before use.
	ClearCache bool
	// TTL is the cache time-to-live in whole days. Nil means DefaultTTL;
	// zero disables caching entirely.
	TTL *int
	// CachePath locates the sqlite cache store.
	CachePath string
}

// File is a handle bound to one remote file. A File owns its in-memory
// metadata snapshot exclusively; two handles pointed at the same remote file
// may observe stale data relative to each other, bounded by the cache TTL.
type File struct {
	service Service
	cache   Cache
	account string
	key     string
	ttl     time.Duration

	fileID     string
	fileName   string
	folderID   string
	folderName string

	state handleState
	meta  *FileMetadata
}

// New builds a handle from a service-account credential file and opens the
// persistent cache store. The handle is unresolved until Initialize runs.
func New(ctx context.Context, cfg Config) (*File, error) {
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	credential, err := os.ReadFile(cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	service, err := newDriveService(ctx, credential)
	if err != nil {
		return nil, err
	}

	cachePath := cfg.CachePath
	if cachePath == "" {
		cachePath = defaultCachePath
	}
	var cache Cache
	cache, err = NewSQLiteCache(cachePath)
	if err != nil {
		// Cache-store failures are soft: degrade to an in-memory store.
		logrus.WithError(err).WithField("path", cachePath).Warn("cache store unavailable, using in-memory cache")
		cache = NewMemoryCache()
	}

	return newFile(ctx, &cfg, accountIdentity(credential, cfg.ServiceAccountFile), service, cache), nil
}

// NewWithService builds a handle over an injected Service and Cache. The
// account string stands in for the service-account identity in cache keys.
func NewWithService(ctx context.Context, cfg Config, account string, service Service, cache Cache) (*File, error) {
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return newFile(ctx, &cfg, account, service, cache), nil
}

func validate(cfg *Config) error {
	if cfg.FileID == "" && cfg.FileName == "" {
		return errors.New("driverator: either FileID or FileName is required")
	}
	return nil
}

func newFile(ctx context.Context, cfg *Config, account string, service Service, cache Cache) *File {
	days := DefaultTTL
	if cfg.TTL != nil {
		days = *cfg.TTL
	}
	f := &File{
		service:    service,
		cache:      cache,
		account:    account,
		key:        cacheKey(account, cfg),
		ttl:        time.Duration(days) * 24 * time.Hour,
		fileID:     cfg.FileID,
		fileName:   cfg.FileName,
		folderID:   cfg.FolderID,
		folderName: cfg.FolderName,
		state:      stateUnresolved,
	}
	if cfg.ClearCache && cache != nil {
		if err := cache.Clear(ctx); err != nil {
			logrus.WithError(err).Warn("cache clear failed")
		}
	}
	return f
}

// Close releases the cache store.
func (f *File) Close() error {
	if f.cache != nil {
		return f.cache.Close()
	}
	return nil
}

// Initialize resolves the handle to a remote file, consulting the cache
// first. A handle constructed with a file name that matches nothing remote
// enters the pending state; Upload then creates the file. An explicit file
// id that does not exist fails with ErrNotFound.
func (f *File) Initialize(ctx context.Context) error {
	if err := f.resolveFolder(ctx); err != nil {
		return err
	}

	if f.fileID != "" {
		meta := f.cacheGet(ctx)
		if meta == nil {
			fetched, err := f.service.GetFile(ctx, f.fileID)
			if err != nil {
				return err
			}
			meta = fetched
			f.adopt(meta)
			f.cachePut(ctx)
			return nil
		}
		f.adopt(meta)
		return nil
	}

	meta := f.cacheGet(ctx)
	if meta == nil {
		found, err := f.service.FindFile(ctx, f.fileName, f.folderID)
		if errors.Is(err, ErrNotFound) {
			f.state = statePending
			f.meta = nil
			return nil
		}
		if err != nil {
			return err
		}
		f.adopt(found)
		f.cachePut(ctx)
		return nil
	}
	f.adopt(meta)
	return nil
}

// Upload creates the remote file from a local path. Valid only while the
// handle is pending creation or after a permanent delete; an already-bound
// handle fails with ErrAlreadyExists (use Update to replace content).
func (f *File) Upload(ctx context.Context, localPath string) error {
	switch f.state {
	case stateUnresolved:
		return ErrNotInitialized
	case stateBound, stateTrashed:
		return fmt.Errorf("%w: bound to %s", ErrAlreadyExists, f.fileID)
	}

	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	defer local.Close()

	name := f.fileName
	if name == "" {
		name = filepath.Base(localPath)
	}
	meta, err := f.service.CreateFile(ctx, name, f.folderID, local)
	if err != nil {
		return err
	}
	f.adopt(meta)
	f.cachePut(ctx)
	return nil
}

// Update replaces the content of the bound remote file and refreshes the
// cached snapshot.
func (f *File) Update(ctx context.Context, localPath string) error {
	if err := f.requireBound(); err != nil {
		return err
	}
	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	defer local.Close()

	meta, err := f.service.UpdateContent(ctx, f.fileID, local)
	if err != nil {
		return err
	}
	f.adopt(meta)
	f.cachePut(ctx)
	return nil
}

// Download streams the remote content to a local path.
func (f *File) Download(ctx context.Context, localPath string) error {
	if err := f.requireBound(); err != nil {
		return err
	}
	remote, err := f.service.Download(ctx, f.fileID)
	if err != nil {
		return err
	}
	defer remote.Close()

	local, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	if _, err := io.Copy(local, remote); err != nil {
		local.Close()
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	if err := local.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrLocalIO, err)
	}
	return nil
}

// Rename changes the remote file name. The snapshot and cache entry are
// patched in place; no metadata refetch happens.
func (f *File) Rename(ctx context.Context, newName string) error {
	if err := f.requireBound(); err != nil {
		return err
	}
	if err := f.service.UpdateName(ctx, f.fileID, newName); err != nil {
		return err
	}
	f.fileName = newName
	f.meta.Name = newName
	f.cachePut(ctx)
	return nil
}

// Move reparents the remote file into the folder given by id or name. A
// named folder that does not exist is created. The snapshot and cache entry
// are patched in place.
func (f *File) Move(ctx context.Context, folderID, folderName string) error {
	if err := f.requireBound(); err != nil {
		return err
	}
	target := folderID
	if target == "" && folderName != "" {
		id, err := f.service.FindFolder(ctx, folderName, "")
		if errors.Is(err, ErrNotFound) {
			id, err = f.service.CreateFolder(ctx, folderName, "")
		}
		if err != nil {
			return err
		}
		target = id
	}
	if target == "" {
		return errors.New("driverator: move requires a folder id or name")
	}

	if err := f.service.MoveFile(ctx, f.fileID, target, f.meta.Parents); err != nil {
		return err
	}
	f.meta.Parents = []string{target}
	f.folderID = target
	if folderName != "" {
		f.folderName = folderName
	}
	f.cachePut(ctx)
	return nil
}

// Delete moves the remote file to the trash, or removes it permanently. A
// permanent delete evicts the cache entry and leaves the handle unusable for
// anything but a fresh Upload.
func (f *File) Delete(ctx context.Context, permanent bool) error {
	switch f.state {
	case stateUnresolved:
		return ErrNotInitialized
	case statePending:
		return fmt.Errorf("%w: file not yet uploaded", ErrNotFound)
	case stateDeleted:
		return fmt.Errorf("%w: file already deleted", ErrNotFound)
	}

	if permanent {
		if err := f.service.Delete(ctx, f.fileID); err != nil {
			return err
		}
		f.cacheInvalidate(ctx)
		f.state = stateDeleted
		f.fileID = ""
		return nil
	}

	if f.state == stateTrashed {
		return nil
	}
	if err := f.service.Trash(ctx, f.fileID); err != nil {
		return err
	}
	f.meta.Trashed = true
	f.state = stateTrashed
	f.cachePut(ctx)
	return nil
}

// Exists reports whether the remote file is present and not trashed,
// consulting the cache first.
func (f *File) Exists(ctx context.Context) (bool, error) {
	switch f.state {
	case stateUnresolved:
		return false, ErrNotInitialized
	case statePending, stateDeleted:
		return false, nil
	}

	meta := f.cacheGet(ctx)
	if meta == nil {
		fetched, err := f.service.GetFile(ctx, f.fileID)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		f.adopt(fetched)
		f.cachePut(ctx)
		return !fetched.Trashed, nil
	}
	f.adopt(meta)
	return !meta.Trashed, nil
}

// Share grants the given role to each email address. No notification emails
// are sent. Permission calls always go to the live API.
func (f *File) Share(ctx context.Context, emails []string, role Role) error {
	if err := f.requireRemote(); err != nil {
		return err
	}
	if !role.valid() {
		return fmt.Errorf("driverator: invalid role %q", role)
	}
	for _, email := range emails {
		_, err := f.service.CreatePermission(ctx, f.fileID, Permission{
			Type:         "user",
			Role:         role,
			EmailAddress: email,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SetAnyoneAccess grants the given role to anyone with the link.
func (f *File) SetAnyoneAccess(ctx context.Context, role Role) error {
	if err := f.requireRemote(); err != nil {
		return err
	}
	if !role.valid() {
		return fmt.Errorf("driverator: invalid role %q", role)
	}
	_, err := f.service.CreatePermission(ctx, f.fileID, Permission{
		Type: "anyone",
		Role: role,
	})
	return err
}

// ListPermissions fetches the live permission list for the file.
func (f *File) ListPermissions(ctx context.Context) ([]Permission, error) {
	if err := f.requireRemote(); err != nil {
		return nil, err
	}
	return f.service.ListPermissions(ctx, f.fileID)
}

// RemovePermission revokes the permission held by the given email address.
func (f *File) RemovePermission(ctx context.Context, email string) error {
	if err := f.requireRemote(); err != nil {
		return err
	}
	perms, err := f.service.ListPermissions(ctx, f.fileID)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(perms, func(p Permission) bool { return p.EmailAddress == email })
	if idx < 0 {
		return fmt.Errorf("%w: no permission for %q", ErrNotFound, email)
	}
	return f.service.DeletePermission(ctx, f.fileID, perms[idx].ID)
}

// Metadata returns a copy of the current snapshot.
func (f *File) Metadata() (*FileMetadata, error) {
	if f.meta == nil {
		return nil, ErrNotInitialized
	}
	meta := *f.meta
	return &meta, nil
}

// URL is the browser view link for the file.
func (f *File) URL() (string, error) {
	if f.meta == nil {
		return "", ErrNotInitialized
	}
	return f.meta.WebViewLink, nil
}

// DownloadURL is the direct content link for the file.
func (f *File) DownloadURL() (string, error) {
	if f.meta == nil {
		return "", ErrNotInitialized
	}
	return f.meta.WebContentLink, nil
}

func (f *File) FileID() (string, error) {
	if f.meta == nil {
		return "", ErrNotInitialized
	}
	return f.meta.ID, nil
}

func (f *File) FileName() (string, error) {
	if f.meta == nil {
		return "", ErrNotInitialized
	}
	return f.meta.Name, nil
}

func (f *File) Size() (int64, error) {
	if f.meta == nil {
		return 0, ErrNotInitialized
	}
	return f.meta.Size, nil
}

func (f *File) MimeType() (string, error) {
	if f.meta == nil {
		return "", ErrNotInitialized
	}
	return f.meta.MimeType, nil
}

func (f *File) CreatedTime() (time.Time, error) {
	if f.meta == nil {
		return time.Time{}, ErrNotInitialized
	}
	return f.meta.CreatedTime, nil
}

func (f *File) ModifiedTime() (time.Time, error) {
	if f.meta == nil {
		return time.Time{}, ErrNotInitialized
	}
	return f.meta.ModifiedTime, nil
}

// adopt installs a snapshot and derives the handle state from it.
func (f *File) adopt(meta *FileMetadata) {
	f.meta = meta
	f.fileID = meta.ID
	f.fileName = meta.Name
	if meta.Trashed {
		f.state = stateTrashed
	} else {
		f.state = stateBound
	}
}

func (f *File) resolveFolder(ctx context.Context) error {
	if f.folderID != "" || f.folderName == "" {
		return nil
	}
	id, err := f.service.FindFolder(ctx, f.folderName, "")
	if errors.Is(err, ErrNotFound) {
		id, err = f.service.CreateFolder(ctx, f.folderName, "")
	}
	if err != nil {
		return err
	}
	f.folderID = id
	return nil
}

func (f *File) requireRemote() error {
	switch f.state {
	case stateUnresolved:
		return ErrNotInitialized
	case statePending:
		return fmt.Errorf("%w: file not yet uploaded", ErrNotFound)
	case stateDeleted:
		return fmt.Errorf("%w: file deleted", ErrNotFound)
	}
	return nil
}

func (f *File) requireBound() error {
	if err := f.requireRemote(); err != nil {
		return err
	}
	if f.state == stateTrashed {
		return fmt.Errorf("%w: file is trashed", ErrNotFound)
	}
	return nil
}

// cacheGet reads the snapshot for this handle's key. Read failures degrade
// to a live fetch.
func (f *File) cacheGet(ctx context.Context) *FileMetadata {
	if f.cache == nil || f.ttl <= 0 {
		return nil
	}
	meta, err := f.cache.Get(ctx, f.key, f.ttl)
	if err != nil {
		logrus.WithError(err).WithField("key", f.key).Warn("cache read failed, falling back to live fetch")
		return nil
	}
	return meta
}

func (f *File) cachePut(ctx context.Context) {
	if f.cache == nil || f.ttl <= 0 || f.meta == nil {
		return
	}
	if err := f.cache.Put(ctx, f.key, f.meta); err != nil {
		logrus.WithError(err).WithField("key", f.key).Warn("cache write failed")
	}
}

func (f *File) cacheInvalidate(ctx context.Context) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Invalidate(ctx, f.key); err != nil {
		logrus.WithError(err).WithField("key", f.key).Warn("cache invalidate failed")
	}
}

// accountIdentity extracts the service-account email for cache keying,
// falling back to the credential path when the JSON has no client_email.
func accountIdentity(credential []byte, fallback string) string {
	var sa struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(credential, &sa); err == nil && sa.ClientEmail != "" {
		return sa.ClientEmail
	}
	return fallback
}
