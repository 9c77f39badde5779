package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/scholarseek/scholarseek/apperr"
	"github.com/scholarseek/scholarseek/models"
)

const (
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleUserURL  = "https://openidconnect.googleapis.com/v1/userinfo"
)

type googleAuthRequest struct {
	Code         string `json:"code" binding:"required"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// GoogleAuth exchanges an OAuth code for tokens, resolves the Google profile
// to an identity (login, link or create) and starts a user session.
func (s *Service) GoogleAuth(c *fiber.Ctx) error {
	var req googleAuthRequest
	if err := bindJSON(c, &req); err != nil {
		return s.fail(c, err)
	}
	if s.Config.GoogleClientID == "" {
		return s.fail(c, apperr.New("missing_google_client", http.StatusInternalServerError, "google client id not configured"))
	}

	token, err := s.exchangeGoogleCode(c.UserContext(), req)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrAuthProvider, ""))
	}

	info, err := s.fetchGoogleUserInfo(c.UserContext(), token.AccessToken)
	if err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrAuthProvider, ""))
	}
	if info.Sub == "" {
		return s.fail(c, apperr.Wrap(errors.New("google subject missing"), apperr.ErrAuthProvider, ""))
	}

	user, isNew, err := s.resolveGoogleUser(info)
	if err != nil {
		return s.fail(c, err)
	}

	if err := s.Sessions.IssueUser(c, user.Snapshot()); err != nil {
		return s.fail(c, apperr.Wrap(err, apperr.ErrInternal, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": user.Snapshot(), "new_user": isNew})
}

// resolveGoogleUser runs the ordered resolution: subject id first, then
// email (link or idempotent re-login), then creation. A non-linkable email
// collision is rejected outright; two identities must never share an email.
func (s *Service) resolveGoogleUser(info googleUserInfo) (*models.User, bool, error) {
	if user, err := models.GetUserByGoogleID(info.Sub, s.Db); err == nil {
		return user, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperr.Wrap(err, apperr.ErrAuthProvider, "")
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email != "" {
		existing, err := models.GetUserByEmail(email, s.Db)
		switch {
		case err == nil && existing.GoogleID != nil && *existing.GoogleID == info.Sub:
			return existing, false, nil
		case err == nil && existing.AuthMethod == models.AuthMethodLocal && existing.GoogleID == nil:
			return s.linkGoogleAccount(existing, info)
		case err == nil:
			return nil, false, apperr.Wrap(
				fmt.Errorf("email %s already belongs to a different login", email),
				apperr.ErrAuthProvider, "")
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, false, apperr.Wrap(err, apperr.ErrAuthProvider, "")
		}
	}

	return s.createGoogleUser(info, email)
}

// linkGoogleAccount attaches the Google subject to an existing local
// identity. Password login keeps working; the profile picture is only
// filled in when empty.
func (s *Service) linkGoogleAccount(user *models.User, info googleUserInfo) (*models.User, bool, error) {
	sub := info.Sub
	updates := map[string]interface{}{
		"google_id":   sub,
		"is_verified": true,
	}
	if user.ProfilePicture == "" && info.Picture != "" {
		updates["profile_picture"] = info.Picture
	}
	if err := s.Db.Model(user).Updates(updates).Error; err != nil {
		return nil, false, apperr.Wrap(err, apperr.ErrAuthProvider, "")
	}
	user.GoogleID = &sub
	user.IsVerified = true
	if pic, ok := updates["profile_picture"]; ok {
		user.ProfilePicture = pic.(string)
	}
	return user, false, nil
}

// createGoogleUser is the creation leg of the resolution. It is a two-step
// saga: the identity row first, then the extension record; a failure on the
// second step leaves the identity in place for read paths to repair.
func (s *Service) createGoogleUser(info googleUserInfo, email string) (*models.User, bool, error) {
	if email == "" {
		return nil, false, apperr.Wrap(errors.New("google profile has no email"), apperr.ErrAuthProvider, "")
	}
	username, err := models.NextFreeUsername(email, s.Db)
	if err != nil {
		return nil, false, apperr.Wrap(err, apperr.ErrAuthProvider, "")
	}

	sub := info.Sub
	user := models.User{
		FirstName:      firstNonEmpty(info.GivenName, info.Name),
		LastName:       info.FamilyName,
		DisplayEmail:   info.Email,
		Username:       username,
		GoogleID:       &sub,
		AuthMethod:     models.AuthMethodGoogle,
		ProfilePicture: info.Picture,
		IsVerified:     true,
		Mobile:         nil, // stays NULL so the sparse-unique index is satisfied
	}
	user.Normalize()
	if err := s.Db.Create(&user).Error; err != nil {
		// Covers the racing-probe case: a concurrent signup won the derived
		// username or subject. Retryable from the caller's side.
		return nil, false, apperr.Wrap(err, apperr.ErrAuthProvider, "")
	}
	if _, err := models.EnsureUserInfo(user.ID, s.Db); err != nil {
		return nil, false, apperr.Wrap(err, apperr.ErrAuthProvider, "")
	}
	return &user, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *Service) exchangeGoogleCode(ctx context.Context, req googleAuthRequest) (googleTokenResponse, error) {
	var token googleTokenResponse

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", req.Code)
	form.Set("client_id", s.Config.GoogleClientID)
	if s.Config.GoogleClientSecret != "" {
		form.Set("client_secret", s.Config.GoogleClientSecret)
	}
	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = s.Config.GoogleRedirectURL
	}
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	if req.CodeVerifier != "" {
		form.Set("code_verifier", req.CodeVerifier)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.googleTokenEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return token, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return token, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return token, fmt.Errorf("google token exchange failed: %s", string(body))
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return token, err
	}
	if token.AccessToken == "" {
		return token, errors.New("missing access_token from google")
	}
	return token, nil
}

func (s *Service) fetchGoogleUserInfo(ctx context.Context, accessToken string) (googleUserInfo, error) {
	var info googleUserInfo
	if accessToken == "" {
		return info, errors.New("missing access token")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.googleUserInfoEndpoint(), nil)
	if err != nil {
		return info, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return info, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return info, fmt.Errorf("google userinfo failed: %s", string(body))
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return info, err
	}
	return info, nil
}

// Endpoint overrides for tests; production always talks to Google.
func (s *Service) googleTokenEndpoint() string {
	if s.Config.GoogleTokenURL != "" {
		return s.Config.GoogleTokenURL
	}
	return googleTokenURL
}

func (s *Service) googleUserInfoEndpoint() string {
	if s.Config.GoogleUserInfoURL != "" {
		return s.Config.GoogleUserInfoURL
	}
	return googleUserURL
}
