package gift

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresRepository reads the scored-items view and its item detail straight
// from Postgres.
type PostgresRepository struct {
	db *sql.DB
}

const selectGiftScores = `
		SELECT s.gift_item_id, s.recipient, s.cluster, s.sub_cluster, s.category, s.current_score, s.created_at,
		       i.id, i.title, i.local_title, i.url, i.image_url, i.images, i.price, i.price_amount, i.price_currency, i.category, i.description
		FROM gift_scores s
		%s JOIN gift_items i ON i.id = s.gift_item_id`

var (
	scoreColumns = map[string]string{
		FieldRecipient: "s.recipient",
		FieldTopic:     "s.cluster",
		FieldArea:      "s.sub_cluster",
		FieldCategory:  "s.category",
		FieldScore:     "s.current_score",
		FieldCreatedAt: "s.created_at",
	}
	detailColumns = map[string]string{
		FieldTitle:       "i.title",
		FieldLocalTitle:  "i.local_title",
		FieldDescription: "i.description",
	}
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Fetch runs one page query. Equality predicates and sort keys are mapped
// through a column whitelist; the text predicate is bound as an ILIKE pattern
// with LIKE wildcards escaped.
func (r *PostgresRepository) Fetch(ctx context.Context, req PageRequest) ([]RawRecord, error) {
	query, args, err := buildPageQuery(req)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query gift_scores: %w", err)
	}
	defer rows.Close()

	out := make([]RawRecord, 0, req.Limit)
	for rows.Next() {
		rec, err := scanRawRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gift_scores: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gift_scores: %w", err)
	}
	return out, nil
}

func buildPageQuery(req PageRequest) (string, []any, error) {
	join := "LEFT"
	if req.StrictJoin {
		join = "INNER"
	}

	var (
		sb    strings.Builder
		args  []any
		conds []string
	)
	sb.WriteString(fmt.Sprintf(selectGiftScores, join))

	for _, p := range req.Equals {
		col, ok := scoreColumns[p.Field]
		if !ok || p.Field == FieldScore || p.Field == FieldCreatedAt {
			return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedField, p.Field)
		}
		args = append(args, p.Value)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if req.Text != "" && len(req.TextFields) > 0 {
		args = append(args, "%"+likeEscaper.Replace(req.Text)+"%")
		n := len(args)
		ors := make([]string, 0, len(req.TextFields))
		for _, f := range req.TextFields {
			col, ok := detailColumns[f]
			if !ok {
				return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedField, f)
			}
			ors = append(ors, fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, col, n))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	if len(conds) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if len(req.Order) > 0 {
		keys := make([]string, 0, len(req.Order))
		for _, o := range req.Order {
			col, ok := scoreColumns[o.Field]
			if !ok {
				return "", nil, fmt.Errorf("%w: order by %s", ErrUnsupportedField, o.Field)
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			keys = append(keys, col+" "+dir)
		}
		sb.WriteString("\n\t\tORDER BY ")
		sb.WriteString(strings.Join(keys, ", "))
	}

	args = append(args, req.Limit, req.Offset)
	sb.WriteString(fmt.Sprintf("\n\t\tLIMIT $%d OFFSET $%d", len(args)-1, len(args)))
	return sb.String(), args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRawRecord(scanner rowScanner) (RawRecord, error) {
	var (
		rec        RawRecord
		recipient  sql.NullString
		cluster    sql.NullString
		subCluster sql.NullString
		category   sql.NullString
		createdAt  sql.NullString

		detailID      RawValue
		title         sql.NullString
		localTitle    sql.NullString
		itemURL       sql.NullString
		imageURL      sql.NullString
		images        RawValue
		price         RawValue
		priceAmount   RawValue
		priceCurrency sql.NullString
		itemCategory  sql.NullString
		description   sql.NullString
	)
	if err := scanner.Scan(
		&rec.GiftItemID,
		&recipient,
		&cluster,
		&subCluster,
		&category,
		&rec.Score,
		&createdAt,
		&detailID,
		&title,
		&localTitle,
		&itemURL,
		&imageURL,
		&images,
		&price,
		&priceAmount,
		&priceCurrency,
		&itemCategory,
		&description,
	); err != nil {
		return RawRecord{}, err
	}

	rec.Recipient = recipient.String
	rec.Cluster = cluster.String
	rec.SubCluster = subCluster.String
	rec.Category = category.String
	rec.CreatedAt = createdAt.String

	// a LEFT JOIN without a detail row yields a NULL detail id
	if detailID.Kind == KindNull {
		return rec, nil
	}
	rec.Detail = &RawDetail{
		ID:            detailID,
		Title:         title.String,
		LocalTitle:    localTitle.String,
		URL:           itemURL.String,
		ImageURL:      imageURL.String,
		Images:        images,
		Price:         price,
		PriceAmount:   priceAmount,
		PriceCurrency: priceCurrency.String,
		Category:      itemCategory.String,
		Description:   description.String,
	}
	return rec, nil
}
