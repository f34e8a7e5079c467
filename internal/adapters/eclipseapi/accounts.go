package eclipseapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"ecavalidator/internal/domain"
)

type accountPayload struct {
	UID         int        `json:"uid"`
	Name        string     `json:"name"`
	Mail        string     `json:"mail"`
	ECA         domain.ECA `json:"eca"`
	IsCommitter bool       `json:"is_committer"`
}

// FindAccountByEmail implements ports.AccountLookup.
func (c *Client) FindAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	var found []accountPayload
	err := c.getJSON(ctx, c.accountsURL+"/account/profile", url.Values{"mail": {email}}, &found)
	if isStatus(err, http.StatusNotFound) {
		return domain.Account{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	for _, a := range found {
		if strings.EqualFold(a.Mail, email) {
			return domain.Account{
				ID:        a.UID,
				Name:      a.Name,
				Email:     a.Mail,
				ECA:       a.ECA,
				Committer: a.IsCommitter,
			}, nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}
