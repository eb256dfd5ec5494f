// Package services implements the HTTP client for the Spotify Web API.
//
// # Interfaces
//
// Consumers depend on the narrow interfaces in this package rather than on [SpotifyService]:
//   - [PlayerAPI] : remote playback state and player commands
//   - [LibraryAPI] : saved tracks, the private profile and the market derived from it
//
// # Authentication
//
// [SpotifyService] uses OAuth2 with automatic token refresh. Tokens come from configuration
// and are issued by the auth command through [SpotifyService.AuthURL]. A callback registered with [SpotifyService.SetTokenRefreshCallback]
// is invoked whenever the token source yields a new access token so that it can be persisted.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : the API answered 401
//   - [shared.ErrNoActiveDevice] : a player endpoint answered 404
//   - [shared.ErrAPIRequest] : any other non-2xx response
package services
