// Package parser provides the decoding building blocks shared by report
// adapters: charset-aware report opening, streaming XML, regex line
// matching and small generic JSON helpers.
//
// Adapters never assume the platform charset. OpenReport takes an explicit
// charset name and transcodes the file to UTF-8 before any format decoding;
// an empty name means UTF-8.
//
// Tool-specific data structures stay in the individual adapter packages.
package parser
