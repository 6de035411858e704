package gift

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	scoresTable         = "gift_scores"
	detailColumnsSelect = "id,title,local_title,url,image_url,images,price,price_amount,price_currency,category,description"
)

// ErrRemoteStatus is returned when the REST endpoint answers with a non-2xx code.
var ErrRemoteStatus = errors.New("remote store returned an error status")

// RESTRepository reads the scored-items view through a PostgREST endpoint
// (Supabase) using Fiber's HTTP client.
type RESTRepository struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewRESTRepository(baseURL, apiKey string, timeout time.Duration) *RESTRepository {
	return &RESTRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
	}
}

func (r *RESTRepository) Fetch(ctx context.Context, req PageRequest) ([]RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query, err := buildRESTQuery(req)
	if err != nil {
		return nil, err
	}

	agent := fiber.Get(r.baseURL + "/rest/v1/" + scoresTable + "?" + query)
	agent.Set("apikey", r.apiKey)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+r.apiKey)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.Set("Range-Unit", "items")
	agent.Set("Range", strconv.Itoa(req.Offset)+"-"+strconv.Itoa(req.RangeEnd()))
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	if err := agent.Parse(); err != nil {
		return nil, fmt.Errorf("request %s: %w", scoresTable, err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("request %s: %w", scoresTable, errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		return nil, fmt.Errorf("%w: %d %s", ErrRemoteStatus, code, strings.TrimSpace(string(body)))
	}

	var out []RawRecord
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", scoresTable, err)
	}
	if out == nil {
		out = []RawRecord{}
	}
	return out, nil
}

func buildRESTQuery(req PageRequest) (string, error) {
	values := url.Values{}
	join := "gift_items"
	if req.StrictJoin {
		join += "!inner"
	}
	values.Set("select", "*,"+join+"("+detailColumnsSelect+")")

	for _, p := range req.Equals {
		switch p.Field {
		case FieldRecipient, FieldTopic, FieldArea, FieldCategory:
			values.Set(p.Field, "eq."+p.Value)
		default:
			return "", fmt.Errorf("%w: %s", ErrUnsupportedField, p.Field)
		}
	}

	if req.Text != "" && len(req.TextFields) > 0 {
		// '*' is the PostgREST wildcard; strip it from the user text
		text := strings.ReplaceAll(req.Text, "*", "")
		ors := make([]string, 0, len(req.TextFields))
		for _, f := range req.TextFields {
			if _, ok := detailColumns[f]; !ok {
				return "", fmt.Errorf("%w: %s", ErrUnsupportedField, f)
			}
			ors = append(ors, f+".ilike.*"+text+"*")
		}
		values.Set("gift_items.or", "("+strings.Join(ors, ",")+")")
	}

	if len(req.Order) > 0 {
		keys := make([]string, 0, len(req.Order))
		for _, o := range req.Order {
			if o.Field != FieldScore && o.Field != FieldCreatedAt {
				return "", fmt.Errorf("%w: order by %s", ErrUnsupportedField, o.Field)
			}
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			keys = append(keys, o.Field+"."+dir)
		}
		values.Set("order", strings.Join(keys, ","))
	}

	values.Set("limit", strconv.Itoa(req.Limit))
	values.Set("offset", strconv.Itoa(req.Offset))
	return values.Encode(), nil
}
