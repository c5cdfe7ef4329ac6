package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"estatehub/internal/config"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubUserURL     = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"
)

// ProfileFetcher reads the signed-in user's profile with an authorized client.
type ProfileFetcher func(ctx context.Context, client *http.Client) (OAuthIdentity, error)

// OAuthProvider wraps one provider's oauth2 configuration and its profile
// endpoint.
type OAuthProvider struct {
	Name    Provider
	Config  *oauth2.Config
	profile ProfileFetcher
}

func NewOAuthProvider(name Provider, cfg *oauth2.Config, profile ProfileFetcher) *OAuthProvider {
	return &OAuthProvider{Name: name, Config: cfg, profile: profile}
}

func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

// Identify exchanges an authorization code and fetches the caller's profile.
func (p *OAuthProvider) Identify(ctx context.Context, code string) (OAuthIdentity, error) {
	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return OAuthIdentity{}, fmt.Errorf("%s code exchange: %w", p.Name, err)
	}
	id, err := p.profile(ctx, p.Config.Client(ctx, token))
	if err != nil {
		return OAuthIdentity{}, fmt.Errorf("%s profile: %w", p.Name, err)
	}
	id.Provider = p.Name
	return id, nil
}

type OAuthProviders struct {
	byName map[Provider]*OAuthProvider
}

// NewOAuthProviders registers every provider that has credentials configured.
func NewOAuthProviders(cfg config.OAuthConfig) *OAuthProviders {
	ps := &OAuthProviders{byName: map[Provider]*OAuthProvider{}}
	if cfg.Google.Enabled() {
		ps.byName[ProviderGoogle] = &OAuthProvider{
			Name: ProviderGoogle,
			Config: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  cfg.Google.RedirectURL,
				Scopes:       []string{"openid", "profile", "email"},
				Endpoint:     endpoints.Google,
			},
			profile: fetchGoogleProfile,
		}
	}
	if cfg.GitHub.Enabled() {
		ps.byName[ProviderGitHub] = &OAuthProvider{
			Name: ProviderGitHub,
			Config: &oauth2.Config{
				ClientID:     cfg.GitHub.ClientID,
				ClientSecret: cfg.GitHub.ClientSecret,
				RedirectURL:  cfg.GitHub.RedirectURL,
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     endpoints.GitHub,
			},
			profile: fetchGitHubProfile,
		}
	}
	return ps
}

// Register adds or replaces a provider.
func (ps *OAuthProviders) Register(p *OAuthProvider) {
	if ps.byName == nil {
		ps.byName = map[Provider]*OAuthProvider{}
	}
	ps.byName[p.Name] = p
}

func (ps *OAuthProviders) Get(name string) (*OAuthProvider, error) {
	if ps == nil {
		return nil, ErrProviderUnavailable
	}
	p, ok := ps.byName[Provider(name)]
	if !ok {
		return nil, ErrProviderUnavailable
	}
	return p, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func fetchGoogleProfile(ctx context.Context, client *http.Client) (OAuthIdentity, error) {
	var data struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := getJSON(ctx, client, googleUserInfoURL, &data); err != nil {
		return OAuthIdentity{}, err
	}
	return OAuthIdentity{
		Subject:       data.ID,
		Email:         data.Email,
		EmailVerified: data.VerifiedEmail,
		Name:          data.Name,
	}, nil
}

func fetchGitHubProfile(ctx context.Context, client *http.Client) (OAuthIdentity, error) {
	var data struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := getJSON(ctx, client, githubUserURL, &data); err != nil {
		return OAuthIdentity{}, err
	}

	id := OAuthIdentity{
		Subject: strconv.FormatInt(data.ID, 10),
		Name:    data.Name,
	}
	if id.Name == "" {
		id.Name = data.Login
	}

	// the public profile email carries no verification flag, so always ask
	// the emails endpoint
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, githubEmailsURL, &emails); err != nil {
		return id, nil
	}
	for _, e := range emails {
		if e.Primary {
			id.Email = e.Email
			id.EmailVerified = e.Verified
			break
		}
	}
	return id, nil
}
