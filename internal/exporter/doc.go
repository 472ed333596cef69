// Package exporter writes batch-level summaries of a run.
//
// CSVWriter produces one row per sample with the derived quantities, using a
// UTF-8 BOM so spreadsheet tools detect the encoding. WorkbookWriter produces
// an .xlsx file with a Summary sheet (same columns), a Fits sheet (one row per
// probe fit) and a Groups sheet aggregating each sample group.
package exporter
