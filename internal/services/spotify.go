// Spotify Web API implementation of [PlayerAPI] and [LibraryAPI]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyTrack represents a Spotify track or episode.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService talks to the Spotify Web API.
// Uses [oauth2] for authentication and implements [PlayerAPI] and [LibraryAPI].
type SpotifyService struct {
	config      *oauth2.Config
	tokens      oauth2.TokenSource
	httpClient  *http.Client
	baseURL     string
	credentials map[string]string

	onTokenRefresh func(*oauth2.Token)

	profileMu sync.Mutex
	profile   *models.Profile
	market    string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-library-read",
			"user-read-playback-state",
			"user-modify-playback-state",
			"streaming",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		httpClient:  http.DefaultClient,
		baseURL:     spotifyBaseURL,
		credentials: credentials,
	}, nil
}

// Authenticate builds the authorized client from an "access_token" (and optional "refresh_token") in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	accessToken := credentials["access_token"]
	if accessToken == "" {
		return fmt.Errorf("%w: missing access_token in credentials", shared.ErrNotAuthenticated)
	}

	token := &oauth2.Token{AccessToken: accessToken, RefreshToken: credentials["refresh_token"], TokenType: "Bearer"}
	if token.RefreshToken != "" {
		// force a refresh on first use since the stored access token's expiry is unknown
		token.Expiry = time.Now().Add(-time.Minute)
	}

	s.tokens = &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.onTokenRefresh,
	}
	s.httpClient = oauth2.NewClient(ctx, s.tokens)
	return nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetTokenRefreshCallback registers fn to be called with every newly issued token.
//
// Must be called before [SpotifyService.Authenticate].
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// AuthURL returns the authorization code URL the user visits to grant access.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig returns the OAuth2 configuration used for the code exchange.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// TokenSource returns the authenticated token source, or nil before [SpotifyService.Authenticate].
func (s *SpotifyService) TokenSource() oauth2.TokenSource {
	return s.tokens
}

// refreshableTokenSource reports tokens that differ from the last one observed.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// body is JSON-encoded when non-nil. result is left untouched on 204 No Content.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	if s.tokens == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(endpoint, resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError maps a non-2xx response onto the shared error sentinels.
func statusError(endpoint string, resp *http.Response) error {
	message := http.StatusText(resp.StatusCode)
	var apiErr spotifyError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, message)
	case resp.StatusCode == http.StatusNotFound && strings.HasPrefix(endpoint, "/me/player"):
		return fmt.Errorf("%w: %s", shared.ErrNoActiveDevice, message)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", shared.ErrServiceUnavailable, resp.StatusCode, message)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, message)
	}
}

// UserProfile retrieves the current user's private profile.
//
// The profile is fetched once and reused for the lifetime of the service.
func (s *SpotifyService) UserProfile(ctx context.Context) (*models.Profile, error) {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	if s.profile != nil {
		return s.profile, nil
	}

	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}

	s.profile = &models.Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Country:     user.Country,
		Product:     user.Product,
	}
	return s.profile, nil
}

// SetMarket overrides the market derived from the profile.
func (s *SpotifyService) SetMarket(market string) {
	s.profileMu.Lock()
	s.market = market
	s.profileMu.Unlock()
}

// Market returns the configured market, or the profile's country.
func (s *SpotifyService) Market(ctx context.Context) (string, error) {
	s.profileMu.Lock()
	market := s.market
	s.profileMu.Unlock()
	if market != "" {
		return market, nil
	}

	profile, err := s.UserProfile(ctx)
	if err != nil {
		return "", err
	}
	return profile.Country, nil
}

// SavedTracks retrieves one page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, offset, limit int, market string) (*models.Page[models.SavedTrack], error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	query := url.Values{}
	query.Set("limit", fmt.Sprint(limit))
	query.Set("offset", fmt.Sprint(offset))
	if market != "" {
		query.Set("market", market)
	}

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, "/me/tracks", query, nil, &response); err != nil {
		return nil, err
	}

	page := &models.Page[models.SavedTrack]{
		Items:   make([]models.SavedTrack, 0, len(response.Items)),
		Total:   response.Total,
		Offset:  response.Offset,
		Limit:   response.Limit,
		HasNext: response.Next != nil,
	}
	for _, st := range response.Items {
		addedAt, _ := time.Parse(time.RFC3339, st.AddedAt)
		page.Items = append(page.Items, models.SavedTrack{AddedAt: addedAt, Track: convertTrack(st.Track)})
	}
	return page, nil
}

func convertTrack(t SpotifyTrack) models.Item {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}
	return models.Item{
		ID:         t.ID,
		URI:        t.URI,
		Name:       t.Name,
		Type:       t.Type,
		Artists:    artists,
		Album:      t.Album.Name,
		DurationMS: t.DurationMS,
	}
}
