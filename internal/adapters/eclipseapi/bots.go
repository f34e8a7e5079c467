package eclipseapi

import (
	"context"
	"encoding/json"
	"fmt"

	"ecavalidator/internal/domain"
)

// botPayload decodes one bot entry. Besides the scalar fields, every
// object-valued key is a site specific identity keyed by the site host.
type botPayload struct {
	ID        string
	ProjectID string
	Username  string
	Email     string
	Sites     map[string]domain.SiteIdentity
}

type sitePayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (b *botPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		switch key {
		case "id":
			if err := decodeID(val, &b.ID); err != nil {
				return err
			}
		case "projectId":
			if err := json.Unmarshal(val, &b.ProjectID); err != nil {
				return fmt.Errorf("bot projectId: %w", err)
			}
		case "username":
			if err := json.Unmarshal(val, &b.Username); err != nil {
				return fmt.Errorf("bot username: %w", err)
			}
		case "email":
			if err := json.Unmarshal(val, &b.Email); err != nil {
				return fmt.Errorf("bot email: %w", err)
			}
		default:
			var site sitePayload
			if err := json.Unmarshal(val, &site); err != nil {
				// not a site entry
				continue
			}
			if site.Email == "" && site.Username == "" {
				continue
			}
			if b.Sites == nil {
				b.Sites = make(map[string]domain.SiteIdentity)
			}
			b.Sites[key] = domain.SiteIdentity{Username: site.Username, Email: site.Email}
		}
	}
	return nil
}

// decodeID accepts ids sent either as strings or numbers.
func decodeID(val json.RawMessage, out *string) error {
	if err := json.Unmarshal(val, out); err == nil {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(val, &n); err != nil {
		return err
	}
	*out = n.String()
	return nil
}

func (c *Client) fetchBots(ctx context.Context) ([]botPayload, error) {
	var out []botPayload
	if err := c.getJSON(ctx, c.botsURL+"/bots", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBots implements ports.BotRegistry.
func (c *Client) ListBots(ctx context.Context, projectID string) ([]domain.BotRegistration, error) {
	all, err := c.bots.get(ctx, c.fetchBots)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BotRegistration, 0, len(all))
	for _, b := range all {
		if projectID != "" && b.ProjectID != projectID {
			continue
		}
		out = append(out, domain.BotRegistration{
			ID:        b.ID,
			ProjectID: b.ProjectID,
			Username:  b.Username,
			Email:     b.Email,
			Sites:     b.Sites,
		})
	}
	return out, nil
}
