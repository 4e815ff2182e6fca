package sessions

// TokenPair is one session: an access token and the refresh token that can
// rotate it, both bound to the same account.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
