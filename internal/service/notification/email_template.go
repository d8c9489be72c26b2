package notification

import (
	"bytes"
	"html/template"
)

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="margin:0;padding:0;background:#f4f7fb;font-family:Arial,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background:#f4f7fb;padding:30px 0;">
    <tr><td align="center">
      <table width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:12px;overflow:hidden;">
        <tr>
          <td style="background:#1a73e8;padding:35px 40px;text-align:center;">
            <h1 style="color:#ffffff;margin:0;font-size:26px;">🏥 MediCare Pro</h1>
            <p style="color:#c8e0ff;margin:6px 0 0;font-size:13px;">Hospital Management System</p>
          </td>
        </tr>
        <tr>
          <td style="padding:35px 40px;">
            <p style="color:#555;font-size:15px;margin:0 0 10px;">Dear <b style="color:#1a73e8;">{{.Name}}</b>,</p>
            <div style="background:#f0f7ff;border-left:4px solid #1a73e8;border-radius:6px;padding:18px 20px;margin:20px 0;">
              <h2 style="color:#1a73e8;margin:0 0 8px;font-size:18px;">{{.Title}}</h2>
              <p style="color:#444;margin:0;font-size:14px;line-height:1.7;">{{.Body}}</p>
            </div>
            <p style="color:#777;font-size:13px;margin:20px 0 0;">If you have any questions, please contact us at your nearest MediCare Pro center.</p>
          </td>
        </tr>
        <tr>
          <td style="background:#1a73e8;padding:20px 40px;text-align:center;">
            <p style="color:#c8e0ff;margin:0;font-size:12px;">© MediCare Pro. All rights reserved.</p>
            <p style="color:#c8e0ff;margin:4px 0 0;font-size:11px;">This is an automated message. Please do not reply.</p>
          </td>
        </tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

func renderEmail(name string, c Content) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Name  string
		Title string
		Body  string
	}{name, c.Title, c.Body})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
