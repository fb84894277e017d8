// Package sheet reads and writes the tabular files contactscan processes.
//
// A Table is a header row plus data rows, loaded from CSV or XLSX. The
// URL column is located by header name, each row's URL is crawled, and the
// found emails are appended as a new column before the table is written
// back in the same format it came in.
package sheet
