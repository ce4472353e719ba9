package pages

type AuthForm struct {
	Email string
	Next  string
	Error string
}
