package repository

import (
	"context"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/dwesselviax/EstateLogger/internal/common"
)

const (
	tableEstates     = "estates"
	tableSessions    = "logging_sessions"
	tableItems       = "items"
	tableEnrichments = "enrichment_records"
	tableImages      = "item_images"
)

var (
	// EstatesColumns holds the columns for the "estates" table.
	EstatesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "name", Type: field.TypeString},
		{Name: "address", Type: field.TypeString, Default: ""},
		{Name: "auction_date", Type: field.TypeInt64, Nullable: true},
		{Name: "status", Type: field.TypeString, Size: 16, Default: "draft"},
		{Name: "property_type", Type: field.TypeString, Nullable: true},
		{Name: "executor_name", Type: field.TypeString, Nullable: true},
		{Name: "executor_contact", Type: field.TypeString, Nullable: true},
		{Name: "notes", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	// EstatesTable holds the schema information for the "estates" table.
	EstatesTable = &schema.Table{
		Name:       tableEstates,
		Columns:    EstatesColumns,
		PrimaryKey: []*schema.Column{EstatesColumns[0]},
	}

	// SessionsColumns holds the columns for the "logging_sessions" table.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "estate_id", Type: field.TypeString, Size: 36},
		{Name: "status", Type: field.TypeString, Size: 16, Default: "active"},
		{Name: "full_transcript", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "item_count", Type: field.TypeInt64, Default: 0},
		{Name: "started_at", Type: field.TypeInt64},
		{Name: "ended_at", Type: field.TypeInt64, Nullable: true},
	}
	SessionsTable = &schema.Table{
		Name:       tableSessions,
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "logging_sessions_estates_sessions",
				Columns:    []*schema.Column{SessionsColumns[1]},
				RefColumns: []*schema.Column{EstatesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// ItemsColumns holds the columns for the "items" table.
	ItemsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "estate_id", Type: field.TypeString, Size: 36},
		{Name: "session_id", Type: field.TypeString, Size: 36, Nullable: true},
		{Name: "name", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "category", Type: field.TypeString},
		{Name: "condition", Type: field.TypeString, Size: 16, Default: "unknown"},
		{Name: "location", Type: field.TypeString, Nullable: true},
		{Name: "voice_transcript", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "status", Type: field.TypeString, Size: 16, Default: "captured"},
		{Name: "sort_order", Type: field.TypeInt64, Nullable: true},
		{Name: "created_at", Type: field.TypeInt64},
	}
	ItemsTable = &schema.Table{
		Name:       tableItems,
		Columns:    ItemsColumns,
		PrimaryKey: []*schema.Column{ItemsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "items_estates_items",
				Columns:    []*schema.Column{ItemsColumns[1]},
				RefColumns: []*schema.Column{EstatesColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "items_logging_sessions_items",
				Columns:    []*schema.Column{ItemsColumns[2]},
				RefColumns: []*schema.Column{SessionsColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "item_estate_id_status",
				Unique:  false,
				Columns: []*schema.Column{ItemsColumns[1], ItemsColumns[9]},
			},
		},
	}

	// EnrichmentsColumns holds the columns for the "enrichment_records" table.
	EnrichmentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "item_id", Type: field.TypeString, Size: 36, Unique: true},
		{Name: "product_match", Type: field.TypeString, Nullable: true},
		{Name: "manufacturer", Type: field.TypeString, Nullable: true},
		{Name: "estimated_value_low", Type: field.TypeFloat64, Nullable: true},
		{Name: "estimated_value_high", Type: field.TypeFloat64, Nullable: true},
		{Name: "recommended_start_bid", Type: field.TypeFloat64, Nullable: true},
		{Name: "enhanced_description", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "notable_details", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "confidence", Type: field.TypeString, Size: 8, Default: "medium"},
		{Name: "enriched_at", Type: field.TypeInt64},
	}
	EnrichmentsTable = &schema.Table{
		Name:       tableEnrichments,
		Columns:    EnrichmentsColumns,
		PrimaryKey: []*schema.Column{EnrichmentsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "enrichment_records_items_enrichment",
				Columns:    []*schema.Column{EnrichmentsColumns[1]},
				RefColumns: []*schema.Column{ItemsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// ImagesColumns holds the columns for the "item_images" table.
	ImagesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "item_id", Type: field.TypeString, Size: 36},
		{Name: "url", Type: field.TypeString, Size: 2048},
		{Name: "type", Type: field.TypeString, Size: 16, Default: "actual"},
		{Name: "is_primary", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeInt64},
	}
	ImagesTable = &schema.Table{
		Name:       tableImages,
		Columns:    ImagesColumns,
		PrimaryKey: []*schema.Column{ImagesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "item_images_items_images",
				Columns:    []*schema.Column{ImagesColumns[1]},
				RefColumns: []*schema.Column{ItemsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "itemimage_item_id",
				Unique:  false,
				Columns: []*schema.Column{ImagesColumns[1]},
			},
		},
	}

	// Tables holds all the tables in the schema, in dependency order.
	Tables = []*schema.Table{
		EstatesTable,
		SessionsTable,
		ItemsTable,
		EnrichmentsTable,
		ImagesTable,
	}
)

func init() {
	SessionsTable.ForeignKeys[0].RefTable = EstatesTable
	ItemsTable.ForeignKeys[0].RefTable = EstatesTable
	ItemsTable.ForeignKeys[1].RefTable = SessionsTable
	EnrichmentsTable.ForeignKeys[0].RefTable = ItemsTable
	ImagesTable.ForeignKeys[0].RefTable = ItemsTable
}

// Migrate creates or updates the catalog tables.
func Migrate(ctx context.Context, d *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := schema.NewMigrate(d.drv)
	if err != nil {
		return err
	}
	logger.Info("running schema migration", "dialect", d.dialect, "tables", len(Tables))
	if err := m.Create(ctx, Tables...); err != nil {
		logger.Error("schema migration failed", "error", err)
		return err
	}
	logger.Info("schema migration complete")
	return nil
}

// TableCounts returns the row count of every catalog table, keyed by name.
func TableCounts(ctx context.Context, d *DB) (map[string]int, error) {
	counts := make(map[string]int, len(Tables))
	b := d.builder()
	for _, t := range Tables {
		var n int
		q := b.Select(entsql.Count("*")).From(b.Table(t.Name))
		if err := queryRows(ctx, d.drv, q, func(rows *entsql.Rows) error {
			return rows.Scan(&n)
		}); err != nil {
			return nil, common.StoreError("count "+t.Name, err)
		}
		counts[t.Name] = n
	}
	return counts, nil
}
