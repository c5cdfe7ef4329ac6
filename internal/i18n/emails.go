package i18n

import (
	"html"
	"strconv"
	"strings"
	"time"
)

type EmailContent struct {
	Subject string
	Text    string
	HTML    string
}

type emailStrings struct {
	VerificationSubject string
	VerificationText    string
	VerificationHTML    string

	ResetCodeSubject string
	ResetCodeText    string
	ResetCodeHTML    string
}

const emailLayout = `<div style="font-family: 'Helvetica Neue', Arial, sans-serif; background-color: #f9f9f9; padding: 40px 0; margin: 0;">` +
	`<div style="max-width: 600px; margin: auto; background-color: #ffffff; border-radius: 10px; overflow: hidden;">` +
	`<div style="background-color: #4f46e5; color: #ffffff; text-align: center; padding: 30px;"><h1 style="margin: 0; font-size: 28px;">{greeting}</h1></div>` +
	`<div style="padding: 30px; color: #333333; font-size: 16px; line-height: 1.6;">{body}` +
	`<div style="text-align: center; margin: 30px 0;"><span style="display: inline-block; font-size: 24px; font-weight: bold; padding: 15px 25px; background-color: #f3f4f6; border-radius: 5px; letter-spacing: 2px;">{code}</span></div>` +
	`<p style="font-size: 14px; color: #666666;">{footnote}</p></div>` +
	`<div style="background-color: #f1f1f1; text-align: center; padding: 20px; font-size: 12px; color: #999999;"><p>&copy; {year} {company}</p></div>` +
	`</div></div>`

func layout(greeting, body, footnote string) string {
	r := strings.NewReplacer("{greeting}", greeting, "{body}", body, "{footnote}", footnote)
	return r.Replace(emailLayout)
}

var emailTranslations = map[string]emailStrings{
	"en": {
		VerificationSubject: "Verify your email",
		VerificationText: "Hello {name},\n\nThank you for registering with {company}. Your verification code is {code}.\n" +
			"The code expires in {hours} hours. If you did not create an account, you can ignore this email.",
		VerificationHTML: layout(
			"Hello, {name}!",
			"<p>Thank you for registering an account with <strong>{company}</strong>. Please verify your email to activate your account.</p>",
			"This code will expire in {hours} hours. If you did not create an account, you can safely ignore this email.",
		),

		ResetCodeSubject: "Reset your password",
		ResetCodeText: "Hello {name},\n\nUse the code {code} to change or create your {company} password.\n" +
			"The code expires in {minutes} minutes. If you did not request this, you can ignore this email.",
		ResetCodeHTML: layout(
			"Hello, {name}!",
			"<p>We received a request to change or create the password of your <strong>{company}</strong> account. Enter the code below to continue.</p>",
			"This code will expire in {minutes} minutes. If you did not request this, you can safely ignore this email.",
		),
	},
	"de": {
		VerificationSubject: "E-Mail verifizieren",
		VerificationText: "Hallo {name},\n\nvielen Dank für Ihre Registrierung bei {company}. Ihr Verifizierungscode ist {code}.\n" +
			"Der Code ist {hours} Stunden gültig. Wenn Sie kein Konto erstellt haben, können Sie diese E-Mail ignorieren.",
		VerificationHTML: layout(
			"Hallo, {name}!",
			"<p>Vielen Dank für Ihre Registrierung bei <strong>{company}</strong>. Bitte verifizieren Sie Ihre E-Mail, um Ihr Konto zu aktivieren.</p>",
			"Der Code ist {hours} Stunden gültig. Wenn Sie kein Konto erstellt haben, können Sie diese E-Mail ignorieren.",
		),

		ResetCodeSubject: "Passwort zurücksetzen",
		ResetCodeText: "Hallo {name},\n\nmit dem Code {code} können Sie Ihr Passwort bei {company} ändern oder festlegen.\n" +
			"Der Code ist {minutes} Minuten gültig. Wenn Sie dies nicht angefordert haben, ignorieren Sie diese E-Mail.",
		ResetCodeHTML: layout(
			"Hallo, {name}!",
			"<p>Wir haben eine Anfrage erhalten, das Passwort Ihres <strong>{company}</strong>-Kontos zu ändern oder festzulegen. Geben Sie den folgenden Code ein.</p>",
			"Der Code ist {minutes} Minuten gültig. Wenn Sie dies nicht angefordert haben, ignorieren Sie diese E-Mail.",
		),
	},
}

func emailStringsForLocale(locale string) emailStrings {
	key := NormalizeLocale(locale)
	if val, ok := emailTranslations[key]; ok {
		return val
	}
	return emailTranslations[DefaultLocale]
}

func renderTemplate(tmpl string, values map[string]string) string {
	if tmpl == "" || len(values) == 0 {
		return tmpl
	}

	replacements := make([]string, 0, len(values)*2)
	for key, value := range values {
		replacements = append(replacements, "{"+key+"}", value)
	}
	return strings.NewReplacer(replacements...).Replace(tmpl)
}

func escapeValues(values map[string]string) map[string]string {
	escaped := make(map[string]string, len(values))
	for k, v := range values {
		escaped[k] = html.EscapeString(v)
	}
	return escaped
}

func render(subject, text, htmlTmpl string, values map[string]string) EmailContent {
	values["year"] = strconv.Itoa(time.Now().Year())
	return EmailContent{
		Subject: subject,
		Text:    renderTemplate(text, values),
		HTML:    renderTemplate(htmlTmpl, escapeValues(values)),
	}
}

func VerificationEmail(locale, name, company, code string, hours int) EmailContent {
	templates := emailStringsForLocale(locale)
	return render(templates.VerificationSubject, templates.VerificationText, templates.VerificationHTML, map[string]string{
		"name":    name,
		"company": company,
		"code":    code,
		"hours":   strconv.Itoa(hours),
	})
}

func PasswordResetCodeEmail(locale, name, company, code string, minutes int) EmailContent {
	templates := emailStringsForLocale(locale)
	return render(templates.ResetCodeSubject, templates.ResetCodeText, templates.ResetCodeHTML, map[string]string{
		"name":    name,
		"company": company,
		"code":    code,
		"minutes": strconv.Itoa(minutes),
	})
}
