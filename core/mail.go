package core

import (
	"bytes"
	"encoding/base64"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/mail"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

const DefaultLocale = "en"

var (
	templates tmplCache
	tmplInit  sync.Once

	// TemplateFS holds the email template files; apps set it to the embedded
	// assets at startup (see the fs package).
	TemplateFS     fs.FS
	templateRoot   = "assets/templates/email"
	templateExts   = []string{".txt", ".gohtml"}
	basePartPrefix = "_"
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name.locale: {tmplCacheEntry}}

	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without locale and ext
		Locale       string // recipient locale; empty means DefaultLocale
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		FrontendBaseURL: Conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
}

// getTemplate resolves the message template for ext, preferring the
// recipient's locale and falling back to the default locale.
func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	locale := m.Locale
	if locale == "" {
		locale = DefaultLocale
	}
	for _, key := range []string{m.TemplateName + "." + locale, m.TemplateName + "." + DefaultLocale} {
		if cache, ok := templates[key]; ok {
			if tmplEntry, ok := cache[ext]; ok {
				return tmplEntry, true
			}
		}
	}
	return nil, false
}

func (m *EmailMessage) renderText() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML() error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render() error {
	if m.TemplateName != "" {
		tmplInit.Do(parseTemplates) // only execute once during first send
	}
	if err := m.renderText(); err != nil {
		return err
	}
	return m.renderHTML()
}

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}

	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	// base64 encode content
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err := encoder.Write(content); err != nil {
		return err
	}
	encoder.Close()

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) AttachFile(path string, contentType ...string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Attach(f, filepath.Base(path), contentType...)
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

func parseTemplates() {
	templates = make(tmplCache)
	if TemplateFS == nil {
		return
	}

	entries, err := fs.ReadDir(TemplateFS, templateRoot)
	if err != nil {
		log.Print(errors.Wrap(err, "core.parseTemplates"))
		return
	}

	for _, entry := range entries {
		fname := entry.Name()
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, basePartPrefix) || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := fname[:strings.LastIndex(fname, ".")] // "submission_accepted.en"
		entryCache, ok := templates[name]
		if !ok {
			templates[name] = make(tmplCacheEntry)
			entryCache = templates[name]
		}
		fp := path.Join(templateRoot, fname)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(TemplateFS, path.Join(templateRoot, "_base.txt"), fp)
			if err != nil {
				log.Print(errors.Wrap(err, "core.parseTemplates"))
				continue
			}
			if Conf.Debug || Conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entryCache[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(TemplateFS, path.Join(templateRoot, "_base.gohtml"), fp)
			if err != nil {
				log.Print(errors.Wrap(err, "core.parseTemplates"))
				continue
			}
			if Conf.Debug || Conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entryCache[ext] = tmpl
		}
	}
}
