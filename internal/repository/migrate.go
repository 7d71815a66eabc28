package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	TableBills        = "bills"
	TableBillItems    = "bill_items"
	TableBillPayments = "bill_payments"
)

// numeric amounts on postgres, REAL elsewhere
var moneyType = map[string]string{dialect.Postgres: "numeric(12,2)"}

var (
	// BillsColumns holds the columns for the "bills" table.
	// Timestamps are stored as RFC3339 text so both backends scan them the same way.
	BillsColumns = []*schema.Column{
		{Name: colUploadID, Type: field.TypeString},
		{Name: colSourcePDF, Type: field.TypeString, Default: ""},
		{Name: colSchemaVersion, Type: field.TypeInt},
		{Name: colCreatedAt, Type: field.TypeString},
		{Name: colUpdatedAt, Type: field.TypeString},
		{Name: colPageCount, Type: field.TypeInt},
		{Name: colStatus, Type: field.TypeString},
		{Name: colExtractionDate, Type: field.TypeString},
		{Name: colExtractionConfidence, Type: field.TypeFloat64},
		{Name: colPrimaryBillNumber, Type: field.TypeString, Nullable: true},
		{Name: colBillNumbers, Type: field.TypeString, Size: 2147483647},
		{Name: colBillingDate, Type: field.TypeString, Nullable: true},
		{Name: colHospitalName, Type: field.TypeString, Nullable: true},
		{Name: colPatientName, Type: field.TypeString},
		{Name: colPatientMRN, Type: field.TypeString, Nullable: true},
		{Name: colSubtotals, Type: field.TypeString, Size: 2147483647},
		{Name: colGrossTotal, Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: colAmountPaid, Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: colBalanceToPay, Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: colGrandTotal, Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: colRawOCRText, Type: field.TypeString, Nullable: true, Size: 2147483647},
	}
	// BillsTable holds the schema information for the "bills" table.
	BillsTable = &schema.Table{
		Name:       TableBills,
		Columns:    BillsColumns,
		PrimaryKey: []*schema.Column{BillsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "bill_patient_mrn", Columns: []*schema.Column{BillsColumns[14]}},
			{Name: "bill_patient_name", Columns: []*schema.Column{BillsColumns[13]}},
		},
	}

	// BillItemsColumns holds the columns for the "bill_items" table.
	BillItemsColumns = []*schema.Column{
		{Name: colUploadID, Type: field.TypeString},
		{Name: colItemID, Type: field.TypeString, Size: 40},
		{Name: colCategory, Type: field.TypeString},
		{Name: colDescription, Type: field.TypeString, Size: 2147483647},
		{Name: colAmount, Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: colPage, Type: field.TypeInt},
		{Name: colSectionRaw, Type: field.TypeString, Nullable: true},
		{Name: colOrdinal, Type: field.TypeInt},
	}
	// BillItemsTable holds the schema information for the "bill_items" table.
	BillItemsTable = &schema.Table{
		Name:       TableBillItems,
		Columns:    BillItemsColumns,
		PrimaryKey: []*schema.Column{BillItemsColumns[0], BillItemsColumns[1]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "bill_items_bills_items",
				Columns:    []*schema.Column{BillItemsColumns[0]},
				RefColumns: []*schema.Column{BillsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "billitem_category", Columns: []*schema.Column{BillItemsColumns[2]}},
		},
	}

	// BillPaymentsColumns holds the columns for the "bill_payments" table.
	BillPaymentsColumns = []*schema.Column{
		{Name: colUploadID, Type: field.TypeString},
		{Name: colPaymentID, Type: field.TypeString, Size: 40},
		{Name: colDescription, Type: field.TypeString, Size: 2147483647},
		{Name: colAmount, Type: field.TypeFloat64, Nullable: true, SchemaType: moneyType},
		{Name: colReference, Type: field.TypeString, Nullable: true},
		{Name: colMode, Type: field.TypeString, Nullable: true},
		{Name: colPage, Type: field.TypeInt},
		{Name: colOrdinal, Type: field.TypeInt},
	}
	// BillPaymentsTable holds the schema information for the "bill_payments" table.
	BillPaymentsTable = &schema.Table{
		Name:       TableBillPayments,
		Columns:    BillPaymentsColumns,
		PrimaryKey: []*schema.Column{BillPaymentsColumns[0], BillPaymentsColumns[1]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "bill_payments_bills_payments",
				Columns:    []*schema.Column{BillPaymentsColumns[0]},
				RefColumns: []*schema.Column{BillsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		BillsTable,
		BillItemsTable,
		BillPaymentsTable,
	}
)

func init() {
	BillItemsTable.ForeignKeys[0].RefTable = BillsTable
	BillPaymentsTable.ForeignKeys[0].RefTable = BillsTable
}

// Migrate creates or updates the bill tables. It is safe to run on every start.
func Migrate(ctx context.Context, drv *entsql.Driver, opts ...schema.MigrateOption) error {
	m, err := schema.NewMigrate(drv, opts...)
	if err != nil {
		return fmt.Errorf("ent/migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("ent/migrate: create tables: %w", err)
	}
	return nil
}
