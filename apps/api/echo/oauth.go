package echoapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/eduvault/eduvault/core"
	"github.com/eduvault/eduvault/core/user"
)

var googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// oauthState rides through Google's consent flow; the requested role is only
// honored when the callback ends up creating a brand-new account.
type oauthState struct {
	Role  string `json:"role,omitempty"`
	Nonce string `json:"nonce"`
}

func newGoogleOAuthConfig(conf *core.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     conf.Google.ClientID,
		ClientSecret: conf.Google.ClientSecret,
		RedirectURL:  conf.Google.RedirectURL,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}
}

func encodeOAuthState(state oauthState) string {
	b, _ := json.Marshal(state)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeOAuthState(s string) (oauthState, error) {
	var state oauthState
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return state, err
	}
	err = json.Unmarshal(b, &state)
	return state, err
}

func (api *userApi) googleLogin(conf *core.Config) echo.HandlerFunc {
	oauthConf := newGoogleOAuthConfig(conf)
	return func(ctx echo.Context) error {
		nonce := make([]byte, 16)
		if _, err := rand.Read(nonce); err != nil {
			return errors.Wrap(err, "generating state nonce")
		}
		state := oauthState{
			Role:  core.CleanString(ctx.QueryParam("role"), true /* lower */),
			Nonce: hex.EncodeToString(nonce),
		}
		return ctx.Redirect(http.StatusFound, oauthConf.AuthCodeURL(encodeOAuthState(state)))
	}
}

func (api *userApi) googleCallback(conf *core.Config) echo.HandlerFunc {
	oauthConf := newGoogleOAuthConfig(conf)
	loginErrURL := conf.FrontendBaseURL + "/login?error=auth_failed"

	return func(ctx echo.Context) error {
		state, err := decodeOAuthState(ctx.QueryParam("state"))
		if err != nil || ctx.QueryParam("code") == "" {
			return ctx.Redirect(http.StatusFound, loginErrURL)
		}

		reqCtx := ctx.Request().Context()
		token, err := oauthConf.Exchange(reqCtx, ctx.QueryParam("code"))
		if err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "exchanging authorization code"))
			return ctx.Redirect(http.StatusFound, loginErrURL)
		}

		profile, err := fetchGoogleProfile(reqCtx, oauthConf, token)
		if err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "fetching google profile"))
			return ctx.Redirect(http.StatusFound, loginErrURL)
		}

		usr, err := api.svc.CreateFromGoogle(reqCtx, profile, state.Role)
		if err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "creating user from google profile"))
			return ctx.Redirect(http.StatusFound, loginErrURL)
		}

		appToken, err := GenerateToken(GetUserClaims(usr))
		if err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "generating token"))
			return ctx.Redirect(http.StatusFound, loginErrURL)
		}

		return ctx.Redirect(http.StatusFound, fmt.Sprintf(
			"%s/%s-dashboard?token=%s", conf.FrontendBaseURL, usr.Role, appToken))
	}
}

func fetchGoogleProfile(ctx context.Context, oauthConf *oauth2.Config, token *oauth2.Token) (user.GoogleProfile, error) {
	var profile user.GoogleProfile

	res, err := oauthConf.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return profile, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return profile, errors.Errorf("userinfo endpoint returned %d", res.StatusCode)
	}
	err = json.NewDecoder(res.Body).Decode(&profile)
	return profile, err
}
