package driverator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

const fileFields = "id, name, mimeType, size, createdTime, modifiedTime, webViewLink, webContentLink, parents, trashed"

const permissionFields = "id, type, role, emailAddress, displayName"

// Service is the slice of the Drive API a File needs. The real implementation
// wraps google.golang.org/api/drive/v3; tests substitute a mock.
type Service interface {
	GetFile(ctx context.Context, fileID string) (*FileMetadata, error)
	FindFile(ctx context.Context, name, folderID string) (*FileMetadata, error)
	FindFolder(ctx context.Context, name, parentID string) (string, error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	CreateFile(ctx context.Context, name, folderID string, content io.Reader) (*FileMetadata, error)
	UpdateContent(ctx context.Context, fileID string, content io.Reader) (*FileMetadata, error)
	UpdateName(ctx context.Context, fileID, name string) error
	MoveFile(ctx context.Context, fileID, addParent string, removeParents []string) error
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
	Trash(ctx context.Context, fileID string) error
	Delete(ctx context.Context, fileID string) error
	CreatePermission(ctx context.Context, fileID string, perm Permission) (*Permission, error)
	ListPermissions(ctx context.Context, fileID string) ([]Permission, error)
	DeletePermission(ctx context.Context, fileID, permissionID string) error
}

type driveService struct {
	svc *drive.Service
}

func newDriveService(ctx context.Context, credential []byte) (*driveService, error) {
	creds, err := google.CredentialsFromJSON(ctx, credential, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return &driveService{svc: svc}, nil
}

func (d *driveService) GetFile(ctx context.Context, fileID string) (*FileMetadata, error) {
	f, err := d.svc.Files.Get(fileID).
		Context(ctx).
		Fields(fileFields).
		Do()
	if err != nil {
		return nil, classify(err)
	}
	return convertFile(f), nil
}

func (d *driveService) FindFile(ctx context.Context, name, folderID string) (*FileMetadata, error) {
	query := fmt.Sprintf("name = '%s' and trashed = false and mimeType != '%s'", escapeQuery(name), folderMimeType)
	if folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", folderID)
	}
	list, err := d.svc.Files.List().
		Context(ctx).
		Q(query).
		Spaces("drive").
		Fields("files(" + fileFields + ")").
		Do()
	if err != nil {
		return nil, classify(err)
	}
	switch len(list.Files) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	case 1:
		return convertFile(list.Files[0]), nil
	}
	return nil, fmt.Errorf("%w: %d files named %q", ErrAmbiguousName, len(list.Files), name)
}

func (d *driveService) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), folderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", parentID)
	}
	list, err := d.svc.Files.List().
		Context(ctx).
		Q(query).
		Spaces("drive").
		Fields("files(id, name)").
		Do()
	if err != nil {
		return "", classify(err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("%w: folder %q", ErrNotFound, name)
	}
	return list.Files[0].Id, nil
}

func (d *driveService) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}
	res, err := d.svc.Files.Create(folder).
		Context(ctx).
		Fields("id").
		Do()
	if err != nil {
		return "", classify(err)
	}
	return res.Id, nil
}

func (d *driveService) CreateFile(ctx context.Context, name, folderID string, content io.Reader) (*FileMetadata, error) {
	file := &drive.File{Name: name}
	if folderID != "" {
		file.Parents = []string{folderID}
	}
	res, err := d.svc.Files.Create(file).
		Context(ctx).
		Media(content).
		Fields(fileFields).
		Do()
	if err != nil {
		return nil, classify(err)
	}
	return convertFile(res), nil
}

func (d *driveService) UpdateContent(ctx context.Context, fileID string, content io.Reader) (*FileMetadata, error) {
	res, err := d.svc.Files.Update(fileID, &drive.File{}).
		Context(ctx).
		Media(content).
		Fields(fileFields).
		Do()
	if err != nil {
		return nil, classify(err)
	}
	return convertFile(res), nil
}

func (d *driveService) UpdateName(ctx context.Context, fileID, name string) error {
	_, err := d.svc.Files.Update(fileID, &drive.File{Name: name}).
		Context(ctx).
		Fields("id, name").
		Do()
	if err != nil {
		return classify(err)
	}
	return nil
}

func (d *driveService) MoveFile(ctx context.Context, fileID, addParent string, removeParents []string) error {
	call := d.svc.Files.Update(fileID, &drive.File{}).
		Context(ctx).
		AddParents(addParent).
		Fields("id, parents")
	if len(removeParents) > 0 {
		call = call.RemoveParents(strings.Join(removeParents, ","))
	}
	if _, err := call.Do(); err != nil {
		return classify(err)
	}
	return nil
}

func (d *driveService) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := d.svc.Files.Get(fileID).
		Context(ctx).
		Download()
	if err != nil {
		return nil, classify(err)
	}
	return resp.Body, nil
}

func (d *driveService) Trash(ctx context.Context, fileID string) error {
	_, err := d.svc.Files.Update(fileID, &drive.File{Trashed: true}).
		Context(ctx).
		Fields("id, trashed").
		Do()
	if err != nil {
		return classify(err)
	}
	return nil
}

func (d *driveService) Delete(ctx context.Context, fileID string) error {
	if err := d.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return classify(err)
	}
	return nil
}

func (d *driveService) CreatePermission(ctx context.Context, fileID string, perm Permission) (*Permission, error) {
	call := d.svc.Permissions.Create(fileID, &drive.Permission{
		Type:         perm.Type,
		Role:         string(perm.Role),
		EmailAddress: perm.EmailAddress,
	}).
		Context(ctx).
		Fields(permissionFields)
	if perm.EmailAddress != "" {
		call = call.SendNotificationEmail(false)
	}
	res, err := call.Do()
	if err != nil {
		return nil, classify(err)
	}
	return convertPermission(res), nil
}

func (d *driveService) ListPermissions(ctx context.Context, fileID string) ([]Permission, error) {
	list, err := d.svc.Permissions.List(fileID).
		Context(ctx).
		Fields("permissions(" + permissionFields + ")").
		Do()
	if err != nil {
		return nil, classify(err)
	}
	perms := make([]Permission, len(list.Permissions))
	for i, p := range list.Permissions {
		perms[i] = *convertPermission(p)
	}
	return perms, nil
}

func (d *driveService) DeletePermission(ctx context.Context, fileID, permissionID string) error {
	if err := d.svc.Permissions.Delete(fileID, permissionID).Context(ctx).Do(); err != nil {
		return classify(err)
	}
	return nil
}

// convertFile maps the dynamic Drive API document to the fixed-shape record
// everything above the service layer works with.
func convertFile(f *drive.File) *FileMetadata {
	meta := &FileMetadata{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Size:           f.Size,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		Parents:        f.Parents,
		Trashed:        f.Trashed,
	}
	if f.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			meta.CreatedTime = t
		}
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			meta.ModifiedTime = t
		}
	}
	// Metadata-only responses omit the links.
	if meta.WebViewLink == "" && meta.ID != "" {
		meta.WebViewLink = viewURL(meta.ID)
	}
	if meta.WebContentLink == "" && meta.ID != "" {
		meta.WebContentLink = downloadURL(meta.ID)
	}
	return meta
}

func convertPermission(p *drive.Permission) *Permission {
	return &Permission{
		ID:           p.Id,
		Type:         p.Type,
		Role:         Role(p.Role),
		EmailAddress: p.EmailAddress,
		DisplayName:  p.DisplayName,
	}
}

// classify maps a Drive API failure onto the error taxonomy. Anything that
// is not an auth or not-found condition passes through as a RemoteError.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAuth, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		}
		return &RemoteError{StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return &RemoteError{Message: err.Error()}
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
