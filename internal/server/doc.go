// Package server exposes the spreadsheet workflow over HTTP.
//
// GET / serves an upload form, POST /process accepts a CSV or XLSX file in
// the multipart field "file" and answers with the same file, named the
// same, with an Emails column appended. GET /healthz reports liveness.
package server
