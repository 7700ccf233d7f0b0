package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/prperemyshlev/otp-auth-service/internal/dto"
)

type envelope struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Error   string           `json:"error"`
	Data    json.RawMessage  `json:"data"`
	Errors  []dto.FieldError `json:"errors"`
}

func (s *Suite) do(method, path string, body any, accessToken string) (int, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.BaseURL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var env envelope
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (s *Suite) signupAndVerify(username, email, password string) {
	status, _ := s.do(http.MethodPost, "/api/v1/auth/signup", dto.SignupRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, "")
	s.Require().Equal(http.StatusCreated, status)

	otp, ok := s.Mailer.lastOTP()
	s.Require().True(ok, "signup should send a verification code")

	status, _ = s.do(http.MethodPost, "/api/v1/auth/verify-otp", map[string]int{"code": otp.Code}, "")
	s.Require().Equal(http.StatusOK, status)
}

func (s *Suite) login(email, password string) dto.LoginResponse {
	status, env := s.do(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: email, Password: password}, "")
	s.Require().Equal(http.StatusOK, status, env.Message)

	var tokens dto.LoginResponse
	s.Require().NoError(json.Unmarshal(env.Data, &tokens))
	return tokens
}

func (s *Suite) TestSignupVerifyLogin() {
	status, env := s.do(http.MethodPost, "/api/v1/auth/signup", dto.SignupRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "s3cretpass",
	}, "")
	s.Require().Equal(http.StatusCreated, status)
	s.Equal(dto.StatusSuccess, env.Status)
	s.NotContains(string(env.Data), "s3cretpass")

	otp, ok := s.Mailer.lastOTP()
	s.Require().True(ok)
	s.Equal("alice@example.com", otp.Email)
	s.GreaterOrEqual(otp.Code, 100000)
	s.LessOrEqual(otp.Code, 999999)

	status, env = s.do(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: "alice@example.com", Password: "s3cretpass"}, "")
	s.Equal(http.StatusForbidden, status)
	s.Equal("NotVerified", env.Error)

	status, _ = s.do(http.MethodPost, "/api/v1/auth/verify-otp", map[string]int{"code": otp.Code}, "")
	s.Require().Equal(http.StatusOK, status)
	s.Equal(1, s.Mailer.welcomeCount())

	status, env = s.do(http.MethodPost, "/api/v1/auth/verify-otp", map[string]int{"code": otp.Code}, "")
	s.Equal(http.StatusBadRequest, status)
	s.Equal("InvalidCode", env.Error)

	tokens := s.login("alice@example.com", "s3cretpass")
	s.NotEmpty(tokens.AccessToken)
	s.NotEmpty(tokens.RefreshToken)
	s.Equal("Bearer", tokens.TokenType)
	s.Equal(15*60, tokens.ExpiresIn)

	status, env = s.do(http.MethodGet, "/api/v1/auth/me", nil, tokens.AccessToken)
	s.Require().Equal(http.StatusOK, status)

	var me dto.MeResponse
	s.Require().NoError(json.Unmarshal(env.Data, &me))
	s.Equal("alice", me.User.Username)
	s.Require().NotNil(me.Profile)
	s.Equal(me.User.ID, me.Profile.UserID)
	s.NotNil(me.User.LastLogin)
}

func (s *Suite) TestSignup_Duplicate() {
	s.signupAndVerify("bob", "bob@example.com", "s3cretpass")

	status, env := s.do(http.MethodPost, "/api/v1/auth/signup", dto.SignupRequest{
		Username: "bobby",
		Email:    "BOB@example.com",
		Password: "s3cretpass",
	}, "")
	s.Equal(http.StatusConflict, status)
	s.Equal("UserExists", env.Error)
}

func (s *Suite) TestSignup_Validation() {
	status, env := s.do(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":    "not-an-email",
		"password": "short",
	}, "")
	s.Equal(http.StatusBadRequest, status)
	s.Equal("ValidationFailed", env.Error)

	fields := map[string]bool{}
	for _, fe := range env.Errors {
		fields[fe.Field] = true
	}
	s.True(fields["username"])
	s.True(fields["email"])
	s.True(fields["password"])
}

func (s *Suite) TestResendOTP_InvalidatesNothing() {
	status, _ := s.do(http.MethodPost, "/api/v1/auth/signup", dto.SignupRequest{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "s3cretpass",
	}, "")
	s.Require().Equal(http.StatusCreated, status)
	first, _ := s.Mailer.lastOTP()

	status, _ = s.do(http.MethodPost, "/api/v1/auth/resend-otp", dto.ResendOTPRequest{Email: "carol@example.com"}, "")
	s.Require().Equal(http.StatusOK, status)
	second, _ := s.Mailer.lastOTP()
	s.NotEqual(first.Code, second.Code)

	// both codes stay valid, the first one wins
	status, _ = s.do(http.MethodPost, "/api/v1/auth/verify-otp", map[string]int{"code": first.Code}, "")
	s.Require().Equal(http.StatusOK, status)

	status, env := s.do(http.MethodPost, "/api/v1/auth/resend-otp", dto.ResendOTPRequest{Email: "carol@example.com"}, "")
	s.Equal(http.StatusBadRequest, status)
	s.Equal("AlreadyVerified", env.Error)
}

func (s *Suite) TestRefreshAndLogout() {
	s.signupAndVerify("dave", "dave@example.com", "s3cretpass")
	tokens := s.login("dave@example.com", "s3cretpass")

	status, env := s.do(http.MethodPost, "/api/v1/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken}, "")
	s.Require().Equal(http.StatusOK, status)
	var refreshed dto.AccessTokenResponse
	s.Require().NoError(json.Unmarshal(env.Data, &refreshed))
	s.NotEmpty(refreshed.AccessToken)

	status, env = s.do(http.MethodPost, "/api/v1/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: tokens.AccessToken}, "")
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("InvalidToken", env.Error)

	status, _ = s.do(http.MethodPost, "/api/v1/auth/logout", dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken}, tokens.AccessToken)
	s.Require().Equal(http.StatusOK, status)

	status, env = s.do(http.MethodPost, "/api/v1/auth/logout", dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken}, tokens.AccessToken)
	s.Equal(http.StatusConflict, status)
	s.Equal("AlreadyBlacklisted", env.Error)

	status, env = s.do(http.MethodPost, "/api/v1/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken}, "")
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Unauthorized", env.Error)

	// revocation survives a cold cache
	s.Require().NoError(s.Redis.Client.FlushDB(s.T().Context()).Err())
	status, _ = s.do(http.MethodPost, "/api/v1/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken}, "")
	s.Equal(http.StatusUnauthorized, status)
}

func (s *Suite) TestLogout_RequiresAccessToken() {
	s.signupAndVerify("erin", "erin@example.com", "s3cretpass")
	tokens := s.login("erin@example.com", "s3cretpass")

	status, env := s.do(http.MethodPost, "/api/v1/auth/logout", dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken}, "")
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Unauthorized", env.Error)
}

func (s *Suite) TestPasswordReset() {
	s.signupAndVerify("frank", "frank@example.com", "s3cretpass")

	status, env := s.do(http.MethodPost, "/api/v1/auth/reset-password", dto.ResetPasswordRequest{Email: "nobody@example.com"}, "")
	s.Equal(http.StatusNotFound, status)
	s.Equal("UserNotFound", env.Error)

	status, _ = s.do(http.MethodPost, "/api/v1/auth/reset-password", dto.ResetPasswordRequest{Email: "frank@example.com"}, "")
	s.Require().Equal(http.StatusOK, status)

	link, ok := s.Mailer.lastResetURL()
	s.Require().True(ok)
	u, err := url.Parse(link)
	s.Require().NoError(err)
	token := u.Query().Get("token")
	userID := u.Query().Get("userId")
	s.Len(token, 64)
	s.NotEmpty(userID)

	status, env = s.do(http.MethodPost, "/api/v1/auth/reset-password-confirm", dto.ResetPasswordConfirmRequest{
		UserID:      "00000000-0000-0000-0000-000000000000",
		Token:       token,
		NewPassword: "n3wpassword",
	}, "")
	s.Equal(http.StatusForbidden, status)
	s.Equal("ForgedRequest", env.Error)

	confirm := dto.ResetPasswordConfirmRequest{UserID: userID, Token: token, NewPassword: "n3wpassword"}
	status, _ = s.do(http.MethodPost, "/api/v1/auth/reset-password-confirm", confirm, "")
	s.Require().Equal(http.StatusOK, status)

	status, env = s.do(http.MethodPost, "/api/v1/auth/reset-password-confirm", confirm, "")
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("InvalidToken", env.Error)

	status, env = s.do(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: "frank@example.com", Password: "s3cretpass"}, "")
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("InvalidCredentials", env.Error)

	s.login("frank@example.com", "n3wpassword")
}

func (s *Suite) TestMetricsEndpoint() {
	s.signupAndVerify("gina", "gina@example.com", "s3cretpass")

	resp, err := http.Get(s.BaseURL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(buf.String(), "auth_operations_total")
}
