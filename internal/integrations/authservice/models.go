package authservice

// AccessResponse ответ сервиса авторизации на проверку права
type AccessResponse struct {
	Allowed bool   `json:"allowed"`
	Role    string `json:"role,omitempty"`
}
