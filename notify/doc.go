// Package notify delivers credAuth owner notifications by email.
//
// [Mailer] implements credAuth.Notifier with gomail: one HTML message per security alert,
// naming the client IP and linking to the change-password page, and one welcome message per
// registration. Bodies are rendered with html/template so account names are escaped.
package notify
