package service

import "fmt"

func confirmEmailTemplate(confirmURL, appName string) (string, string) {
	subject := fmt.Sprintf("Confirm your email for %s", appName)
	body := fmt.Sprintf(`Welcome! Please confirm your email address to finish creating your account:
%s

This link expires in 24 hours and can only be used once.

If you didn't sign up, you can safely ignore this email.

Best,
The %s Team`, confirmURL, appName)

	return subject, body
}

func passwordResetEmailTemplate(resetURL, appName string) (string, string) {
	subject := fmt.Sprintf("Reset your password for %s", appName)
	body := fmt.Sprintf(`You requested to reset your password. Choose a new one here:
%s

This link expires in 1 hour and can only be used once.

If you didn't request this, you can safely ignore this email. Your password won't be changed.

Best,
The %s Team`, resetURL, appName)

	return subject, body
}

func newRequirementEmailTemplate(customerEmail, fileName, adminURL, appName string) (string, string) {
	subject := "New Requirement Submitted"
	body := fmt.Sprintf(`A new requirement has been submitted by %s.

Attached file: %s

Review it in the admin dashboard:
%s

%s Portal`, customerEmail, fileName, adminURL, appName)

	return subject, body
}

func quoteRequestEmailTemplate(productName, customerName string, quantity int, appName string) (string, string) {
	subject := fmt.Sprintf("Quote request for %s", productName)
	body := fmt.Sprintf(`%s requested a quote for %d x %s.

Open the admin dashboard to see the full request.

%s Portal`, customerName, quantity, productName, appName)

	return subject, body
}
