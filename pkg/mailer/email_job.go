package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue by the API server
// when a user is created; the email worker renders and sends it.
type EmailJob struct {
	To       string `json:"to"`
	Fullname string `json:"fullname"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}
