package usaspending

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/phuslu/log"

	"ContractPulse/internal/model"
)

const searchPath = "/search/spending_by_award/"

// maxLabelRunes bounds award descriptions used as event labels.
const maxLabelRunes = 50

var awardFields = []string{
	"Award ID",
	"Recipient Name",
	"Start Date",
	"End Date",
	"Award Amount",
	"Description",
	"Awarding Agency",
	"Awarding Sub Agency",
	"Contract Award Type",
	"generated_internal_id",
}

type timePeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type searchFilters struct {
	AwardTypeCodes      []string     `json:"award_type_codes"`
	RecipientSearchText []string     `json:"recipient_search_text"`
	TimePeriod          []timePeriod `json:"time_period"`
}

type searchRequest struct {
	Filters   searchFilters `json:"filters"`
	Fields    []string      `json:"fields"`
	Page      int           `json:"page"`
	Limit     int           `json:"limit"`
	Sort      string        `json:"sort"`
	Order     string        `json:"order"`
	Subawards bool          `json:"subawards"`
}

// Award is one row of the spending_by_award search.
type Award struct {
	AwardID       string     `json:"Award ID"`
	RecipientName string     `json:"Recipient Name"`
	StartDate     string     `json:"Start Date"`
	EndDate       string     `json:"End Date"`
	Amount        null.Float `json:"Award Amount"`
	Description   string     `json:"Description"`
	Agency        string     `json:"Awarding Agency"`
	SubAgency     string     `json:"Awarding Sub Agency"`
	AwardType     string     `json:"Contract Award Type"`
	InternalID    string     `json:"generated_internal_id"`
}

type searchResponse struct {
	Results      []Award `json:"results"`
	PageMetadata struct {
		Page    int  `json:"page"`
		HasNext bool `json:"hasNext"`
	} `json:"page_metadata"`
}

// SearchAwards returns contract awards to recipient with a start date in
// [from, to], largest first. It follows pagination up to the configured page cap.
func (c *Client) SearchAwards(ctx context.Context, recipient string, from, to time.Time) ([]Award, error) {
	req := searchRequest{
		Filters: searchFilters{
			AwardTypeCodes:      c.awardTypes,
			RecipientSearchText: []string{recipient},
			TimePeriod: []timePeriod{{
				StartDate: from.Format(model.DateLayout),
				EndDate:   to.Format(model.DateLayout),
			}},
		},
		Fields:    awardFields,
		Limit:     c.pageLimit,
		Sort:      "Award Amount",
		Order:     "desc",
		Subawards: false,
	}

	var awards []Award
	for page := 1; page <= c.maxPages; page++ {
		req.Page = page
		var resp searchResponse
		if err := c.postWithRetry(ctx, searchPath, req, &resp); err != nil {
			return nil, fmt.Errorf("search awards page %d: %w", page, err)
		}
		awards = append(awards, resp.Results...)
		if !resp.PageMetadata.HasNext {
			return awards, nil
		}
	}
	log.Info().Str("recipient", recipient).Int("pages", c.maxPages).Msg("award search truncated at page limit")
	return awards, nil
}

// FetchRawEvents searches awards for recipient and returns them as raw
// events, leaving date validation to the caller.
func (c *Client) FetchRawEvents(ctx context.Context, recipient string, from, to time.Time) ([]model.RawEvent, error) {
	awards, err := c.SearchAwards(ctx, recipient, from, to)
	if err != nil {
		return nil, err
	}
	return ToRawEvents(awards), nil
}

// FetchEvents searches awards for recipient and converts them to an event
// set. Awards without a usable start date are dropped; the count is logged.
func (c *Client) FetchEvents(ctx context.Context, recipient string, from, to time.Time) (model.EventSet, error) {
	raw, err := c.FetchRawEvents(ctx, recipient, from, to)
	if err != nil {
		return nil, err
	}
	events, skipped := model.NewEventSet(raw)
	if skipped > 0 {
		log.Warn().Str("recipient", recipient).Int("skipped", skipped).Msg("awards without a valid start date")
	}
	return events, nil
}

// ToRawEvents maps awards to raw events, truncating descriptions.
func ToRawEvents(awards []Award) []model.RawEvent {
	out := make([]model.RawEvent, 0, len(awards))
	for _, a := range awards {
		label := strings.TrimSpace(a.Description)
		if label == "" {
			label = "No description available"
		}
		out = append(out, model.RawEvent{
			Date:    a.StartDate,
			Label:   Truncate(label, maxLabelRunes),
			Amount:  a.Amount,
			AwardID: a.AwardID,
			Agency:  a.Agency,
		})
	}
	return out
}

// Truncate shortens s to at most n runes, ending with "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
