package backend

import "time"

// User is the profile shape shown across the site. It is assembled from the
// account and its mirror document in the users collection.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// BlogPost is a markdown article. AuthorID holds the id of the owning user.
type BlogPost struct {
	ID          string
	Title       string
	Description string
	Content     string
	Tags        []string
	CoverImage  string
	Slug        string
	AuthorID    string
	AuthorName  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Asset is the metadata record of an uploaded file. The stored object shares
// its id.
type Asset struct {
	ID        string
	Name      string
	UserID    string
	MimeType  string
	Size      int64
	CreatedAt time.Time
}

// Preference keys kept on the account.
const (
	PrefProfilePicture = "profilePicture"
	PrefBio            = "bio"
)

// UserFromAccount maps an account onto a User.
func UserFromAccount(a Account) User {
	return User{
		ID:             a.ID,
		Username:       a.Name,
		Email:          a.Email,
		ProfilePicture: a.Prefs.String(PrefProfilePicture),
		Bio:            a.Prefs.String(PrefBio),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// UserFromDocument maps a users collection document onto a User.
func UserFromDocument(d Document) User {
	return User{
		ID:             d.ID,
		Username:       d.String("username"),
		Email:          d.String("email"),
		ProfilePicture: d.String("profilePicture"),
		Bio:            d.String("bio"),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// Data is the users document body for u.
func (u User) Data() map[string]any {
	return map[string]any{
		"username":       u.Username,
		"email":          u.Email,
		"profilePicture": u.ProfilePicture,
		"bio":            u.Bio,
	}
}

// PostFromDocument maps a blogposts document onto a BlogPost.
func PostFromDocument(d Document) BlogPost {
	p := BlogPost{
		ID:          d.ID,
		Title:       d.String("title"),
		Description: d.String("description"),
		Content:     d.String("content"),
		Tags:        d.Strings("tags"),
		CoverImage:  d.String("coverImage"),
		Slug:        d.String("slug"),
		AuthorID:    d.Ref("user"),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if author, ok := d.Expanded("user"); ok {
		p.AuthorName, _ = author["username"].(string)
	}
	return p
}

// Data is the blogposts document body for p.
func (p BlogPost) Data() map[string]any {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"title":       p.Title,
		"description": p.Description,
		"content":     p.Content,
		"tags":        tags,
		"coverImage":  p.CoverImage,
		"slug":        p.Slug,
		"user":        p.AuthorID,
	}
}

// AssetFromDocument maps an assets collection document onto an Asset.
func AssetFromDocument(d Document) Asset {
	return Asset{
		ID:        d.ID,
		Name:      d.String("name"),
		UserID:    d.Ref("user"),
		MimeType:  d.String("mimeType"),
		Size:      d.Int("size"),
		CreatedAt: d.CreatedAt,
	}
}

// Data is the assets document body for a.
func (a Asset) Data() map[string]any {
	return map[string]any{
		"name":     a.Name,
		"user":     a.UserID,
		"mimeType": a.MimeType,
		"size":     a.Size,
	}
}

// IsImage reports whether the asset can be shown inline.
func (a Asset) IsImage() bool {
	return len(a.MimeType) > 6 && a.MimeType[:6] == "image/"
}
