package notify

import "html/template"

var alertTemplate = template.Must(template.New("alert").Parse(`
<div style="font-family: Arial, sans-serif; background: #f8f8f8; padding: 20px; color: #333;">
  <div style="margin: 0 auto; background: white; border-radius: 8px; padding: 20px;">
    <h2 style="color: #d32f2f; text-align: center;">Suspicious Login Attempt Detected</h2>
    <p>Hello <strong>{{.Name}}</strong>,</p>
    <p>Someone tried to log in to your account {{.Failures}} times from IP
      <span style="font-weight: bold; color: #1565c0;">{{.IP}}</span>.</p>
    <p>If this wasn't you, we recommend you change your password immediately.</p>
    {{- if .SiteLink}}
    <p><a href="{{.SiteLink}}" style="color: #fff; background: #000; font-weight: bold; padding: 1rem; text-decoration: none;">Change your password here.</a></p>
    {{- end}}
    <p style="font-size: 12px; color: #888; text-align: center;">
      This is an automated security alert from <strong>{{.Product}} Security</strong>. Please do not reply.
    </p>
  </div>
</div>
`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`
<h4>{{.Product}} Welcomes You!</h4>
<p>Hello {{.Name}},</p>
<p>Your account has been successfully created. We are so happy to have you here!</p>
`))
