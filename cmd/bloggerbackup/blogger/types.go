// Package blogger is a minimal client for the Blogger v3 REST API: it
// resolves a blog URL to its posts collection and pages through it.
package blogger

import (
	"bytes"
	"encoding/json"
)

// Post is a single blog post as returned by the posts collection.
// The raw JSON is retained so the post can be stored exactly as received.
type Post struct {
	URL       string   `json:"url"`
	Author    Author   `json:"author"`
	Title     string   `json:"title"`
	TitleLink string   `json:"titleLink,omitempty"`
	Content   string   `json:"content"`
	Published string   `json:"published"`
	Updated   string   `json:"updated"`
	Labels    []string `json:"labels,omitempty"`
	Images    []Image  `json:"images,omitempty"`

	raw json.RawMessage
}

// Author of a post.
type Author struct {
	URL         string `json:"url"`
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Image       Image  `json:"image"`
}

// Image is a URL reference to a picture.
type Image struct {
	URL string `json:"url"`
}

type postFields Post

// UnmarshalJSON decodes the known fields and keeps a copy of data.
func (p *Post) UnmarshalJSON(data []byte) error {
	var f postFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = Post(f)
	p.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the bytes the post was decoded from, or encodes the
// known fields for posts built in code.
func (p Post) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(postFields(p)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Raw returns the JSON the post was decoded from, or nil for posts built in
// code.
func (p Post) Raw() json.RawMessage {
	return p.raw
}

// Page is one response of the posts collection.
type Page struct {
	Items         []Post `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
	// HasNext reports whether the response carried a nextPageToken key.
	HasNext bool `json:"-"`
}

// Config controls the client.
type Config struct {
	APIKey string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// StartDate and EndDate are optional RFC 3339 filters; empty means unset.
	StartDate string
	EndDate   string
}

// lookupResponse is the blogs/byurl payload restricted to fields=posts.
type lookupResponse struct {
	Posts *struct {
		SelfLink *string `json:"selfLink"`
	} `json:"posts"`
}
