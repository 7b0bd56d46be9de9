// Package printing contains the print dispatch bounded context.
// It owns the PrintJob aggregate, its canonical status state machine,
// the submission option vocabulary and the booklet imposition order.
package printing
