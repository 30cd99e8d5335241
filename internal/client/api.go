package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dom/anivers/internal/domain"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Session struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	User         domain.PublicUser `json:"user"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ListEntry is the body of a list write.
type ListEntry struct {
	ExternalID    string  `json:"externalId"`
	Status        string  `json:"status"`
	Title         *string `json:"title,omitempty"`
	PosterURL     *string `json:"posterUrl,omitempty"`
	EpisodesTotal *int    `json:"episodesTotal,omitempty"`
}

type FriendSummary struct {
	ID         uuid.UUID `json:"id"`
	Nickname   string    `json:"nickname"`
	AvatarPath string    `json:"avatarPath"`
	Badge      *string   `json:"badge"`
}

type Profile struct {
	User           domain.PublicUser `json:"user"`
	Friends        []FriendSummary   `json:"friends"`
	IsFriend       bool              `json:"isFriend"`
	RequestPending bool              `json:"requestPending"`
}

type Player struct {
	PlayerLink    string  `json:"playerLink"`
	EpisodesTotal int     `json:"episodesTotal"`
	Title         *string `json:"title"`
}

func (c *Client) Register(ctx context.Context, creds Credentials) (*Session, error) {
	return c.startSession(ctx, "/register", creds)
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	return c.startSession(ctx, "/login", creds)
}

func (c *Client) startSession(ctx context.Context, path string, creds Credentials) (*Session, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, path, "application/json", payload, "")
	if err != nil {
		return nil, err
	}
	var s Session
	if err := decode(resp, &s); err != nil {
		return nil, err
	}
	c.SetAccessToken(s.AccessToken)
	return &s, nil
}

// Refresh exchanges the refresh cookie for a new session. It never retries.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	resp, err := c.send(ctx, http.MethodGet, "/refresh", "", nil, "")
	if err != nil {
		return nil, err
	}
	var s Session
	if err := decode(resp, &s); err != nil {
		return nil, err
	}
	c.SetAccessToken(s.AccessToken)
	return &s, nil
}

func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodPost, "/logout", "", nil, "")
	if err != nil {
		return err
	}
	c.SetAccessToken("")
	return decode(resp, nil)
}

func (c *Client) Me(ctx context.Context) (*domain.PublicUser, error) {
	var u domain.PublicUser
	if err := c.Do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) List(ctx context.Context) ([]domain.TrackedItem, error) {
	var items []domain.TrackedItem
	err := c.Do(ctx, http.MethodGet, "/list", nil, &items)
	return items, err
}

func (c *Client) Upsert(ctx context.Context, entry ListEntry) ([]domain.TrackedItem, error) {
	var items []domain.TrackedItem
	err := c.Do(ctx, http.MethodPost, "/list", entry, &items)
	return items, err
}

func (c *Client) Remove(ctx context.Context, externalID string) ([]domain.TrackedItem, error) {
	var items []domain.TrackedItem
	err := c.Do(ctx, http.MethodDelete, "/list/"+url.PathEscape(externalID), nil, &items)
	return items, err
}

// Stats reads the counters of userID; uuid.Nil means the current user.
func (c *Client) Stats(ctx context.Context, userID uuid.UUID) (domain.ListStats, error) {
	var stats domain.ListStats
	err := c.Do(ctx, http.MethodGet, "/users/"+userRef(userID)+"/stats", nil, &stats)
	return stats, err
}

func (c *Client) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TrackedItem, error) {
	var items []domain.TrackedItem
	path := "/users/" + userRef(userID) + "/recent"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	err := c.Do(ctx, http.MethodGet, path, nil, &items)
	return items, err
}

func (c *Client) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	if err := c.Do(ctx, http.MethodGet, "/users/"+userRef(userID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile sends a partial update; keys absent from fields are kept.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]interface{}) (*domain.PublicUser, error) {
	var u domain.PublicUser
	if err := c.Do(ctx, http.MethodPut, "/users/me", fields, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UploadImage posts an avatar or cover image; kind is "avatar" or "cover".
func (c *Client) UploadImage(ctx context.Context, kind, filename string, data []byte) (*domain.PublicUser, error) {
	if kind != "avatar" && kind != "cover" {
		return nil, fmt.Errorf("unknown image kind %q", kind)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(kind, filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var u domain.PublicUser
	if err := c.DoRaw(ctx, http.MethodPost, "/users/me/"+kind, mw.FormDataContentType(), buf.Bytes(), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) RequestFriend(ctx context.Context, userID uuid.UUID) error {
	return c.Do(ctx, http.MethodPost, "/users/"+userID.String()+"/request-friend", nil, nil)
}

func (c *Client) AcceptFriend(ctx context.Context, userID uuid.UUID) error {
	return c.Do(ctx, http.MethodPost, "/users/"+userID.String()+"/accept-friend", nil, nil)
}

func (c *Client) RemoveFriend(ctx context.Context, userID uuid.UUID) error {
	return c.Do(ctx, http.MethodDelete, "/users/"+userID.String()+"/friend", nil, nil)
}

func (c *Client) SearchAnime(ctx context.Context, query url.Values) (json.RawMessage, error) {
	path := "/anime"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var raw json.RawMessage
	err := c.Do(ctx, http.MethodGet, path, nil, &raw)
	return raw, err
}

func (c *Client) Anime(ctx context.Context, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Do(ctx, http.MethodGet, "/anime/"+url.PathEscape(id), nil, &raw)
	return raw, err
}

func (c *Client) Player(ctx context.Context, shikimoriID string) (*Player, error) {
	var p Player
	if err := c.Do(ctx, http.MethodGet, "/player/"+url.PathEscape(shikimoriID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PlayerByMAL looks up a player by MyAnimeList id; the server resolves it to
// a shikimori id first.
func (c *Client) PlayerByMAL(ctx context.Context, malID string) (*Player, error) {
	var p Player
	path := "/player?" + url.Values{"mal_id": {malID}}.Encode()
	if err := c.Do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func userRef(id uuid.UUID) string {
	if id == uuid.Nil {
		return "me"
	}
	return id.String()
}
