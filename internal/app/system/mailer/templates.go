// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// MagicLinkData fills the sign-in email.
type MagicLinkData struct {
	SiteName  string
	Code      string
	MagicLink string
	ExpiresIn string // e.g. "15 minutes"
}

var magicLinkHTML = template.Must(template.New("magiclink").Parse(magicLinkHTMLTemplate))

// BuildMagicLinkEmail renders the sign-in email for to.
func BuildMagicLinkEmail(to string, data MagicLinkData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("Sign in to %s", data.SiteName),
		TextBody: buildMagicLinkText(data),
		HTMLBody: buildMagicLinkHTML(data),
	}
}

func buildMagicLinkText(data MagicLinkData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Open this link to sign in to %s:\n", data.SiteName)
	buf.WriteString(data.MagicLink + "\n\n")
	fmt.Fprintf(&buf, "Or enter this code on the sign-in page: %s\n\n", data.Code)
	fmt.Fprintf(&buf, "The link expires in %s and works once.\n\n", data.ExpiresIn)
	buf.WriteString("If you did not ask to sign in, you can ignore this email.\n")
	return buf.String()
}

func buildMagicLinkHTML(data MagicLinkData) string {
	var buf bytes.Buffer
	_ = magicLinkHTML.Execute(&buf, data)
	return buf.String()
}

const magicLinkHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Sign in</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);">
          <!-- Header -->
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #7c2d12;">{{.SiteName}}</h1>
            </td>
          </tr>

          <!-- Content -->
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Use the button below to sign in, or enter this code:
              </p>

              <!-- Code Box -->
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 24px; text-align: center; margin-bottom: 24px;">
                <span style="font-size: 32px; font-weight: 700; letter-spacing: 8px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Code}}</span>
              </div>

              <p style="margin: 0 0 24px; font-size: 14px; color: #6b7280; text-align: center;">
                The link works once.
              </p>

              <!-- Button -->
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.MagicLink}}" style="display: inline-block; padding: 14px 32px; background-color: #7c2d12; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">
                      Sign In
                    </a>
                  </td>
                </tr>
              </table>

              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">
                This link expires in {{.ExpiresIn}}.
              </p>
            </td>
          </tr>

          <!-- Footer -->
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you did not ask to sign in, you can ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
