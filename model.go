package driverator

import (
	"fmt"
	"time"
)

// Role is the access level granted by a permission.
type Role string

const (
	RoleReader    Role = "reader"
	RoleWriter    Role = "writer"
	RoleCommenter Role = "commenter"
)

func (r Role) valid() bool {
	switch r {
	case RoleReader, RoleWriter, RoleCommenter:
		return true
	}
	return false
}

// FileMetadata is a fixed-shape snapshot of the remote file state. It is
// replaced wholesale on every fetch or mutation; callers never see a
// half-applied update.
type FileMetadata struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	MimeType       string    `json:"mimeType"`
	Size           int64     `json:"size,omitempty"`
	CreatedTime    time.Time `json:"createdTime"`
	ModifiedTime   time.Time `json:"modifiedTime"`
	WebViewLink    string    `json:"webViewLink,omitempty"`
	WebContentLink string    `json:"webContentLink,omitempty"`
	Parents        []string  `json:"parents,omitempty"`
	Trashed        bool      `json:"trashed"`
}

// Permission grants a user (or anyone) access to the file. Permissions are
// never cached; they change independently of file content.
type Permission struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Role         Role   `json:"role"`
	EmailAddress string `json:"emailAddress,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
}

func viewURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", fileID)
}

func downloadURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID)
}
