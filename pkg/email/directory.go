// Package email holds the account and template directory shared by the
// email senders, and an in-memory Outbox sender.
package email

import (
	"cmp"
	"context"
	"fmt"
	"html"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/template"
)

// Directory resolves sending accounts and templates.
type Directory struct {
	mu           sync.RWMutex
	accounts     map[int64]models.EmailAccount
	userDefaults map[int64]int64
	templates    map[int64]models.EmailTemplate
}

func NewDirectory() *Directory {
	return &Directory{
		accounts:     make(map[int64]models.EmailAccount),
		userDefaults: make(map[int64]int64),
		templates:    make(map[int64]models.EmailTemplate),
	}
}

func (d *Directory) AddAccount(account models.EmailAccount) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.accounts[account.ID] = account
}

// SetUserDefault makes accountID the default sending account of userID.
func (d *Directory) SetUserDefault(userID, accountID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.userDefaults[userID] = accountID
}

func (d *Directory) AddTemplate(tmpl models.EmailTemplate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.templates[tmpl.ID] = tmpl
}

// Account returns accountID when it names an active account, otherwise the
// user's default account, otherwise the first active account preferring
// the system default.
func (d *Directory) Account(_ context.Context, accountID, userID *int64) (*models.EmailAccount, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if accountID != nil {
		if account, ok := d.accounts[*accountID]; ok && account.Active {
			return &account, nil
		}

		return nil, fmt.Errorf("%w: %d", protocol.ErrAccountNotFound, *accountID)
	}

	if userID != nil {
		if id, ok := d.userDefaults[*userID]; ok {
			if account, ok := d.accounts[id]; ok && account.Active {
				return &account, nil
			}
		}
	}

	active := slices.DeleteFunc(slices.Collect(maps.Values(d.accounts)), func(a models.EmailAccount) bool {
		return !a.Active
	})

	if len(active) == 0 {
		return nil, protocol.ErrAccountNotFound
	}

	slices.SortFunc(active, func(a, b models.EmailAccount) int {
		if a.Default != b.Default {
			if a.Default {
				return -1
			}

			return 1
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return &active[0], nil
}

func (d *Directory) Template(_ context.Context, id int64) (*models.EmailTemplate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tmpl, ok := d.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", protocol.ErrTemplateNotFound, id)
	}

	return &tmpl, nil
}

// Compose renders templateID with data into a draft message from account.
func (d *Directory) Compose(ctx context.Context, account models.EmailAccount, templateID int64, recipients models.Recipients, data map[string]any, link models.RecordLink) (*models.EmailMessage, error) {
	tmpl, err := d.Template(ctx, templateID)
	if err != nil {
		return nil, err
	}

	body := template.InterpolateData(tmpl.Body, data)

	return &models.EmailMessage{
		AccountID:  account.ID,
		Direction:  models.EmailDirectionOutbound,
		Status:     models.EmailStatusDraft,
		FromEmail:  account.EmailAddress,
		FromName:   account.Name,
		Recipients: recipients,
		Subject:    template.InterpolateData(tmpl.Subject, data),
		BodyHTML:   body,
		BodyText:   StripTags(body),
		TemplateID: &templateID,
		Link:       link,
	}, nil
}

var tags = regexp.MustCompile(`<[^>]*>`)

// StripTags removes markup from an HTML body for the text part.
func StripTags(body string) string {
	return strings.TrimSpace(html.UnescapeString(tags.ReplaceAllString(body, "")))
}
