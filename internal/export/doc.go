// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders a chat transcript as Markdown, JSON or HTML.
//
// # Usage
//
//	doc := export.NewDocument(sess.Messages(), sess.Settings().Model)
//	exp, err := export.ForFormat("markdown", nil)
//	data, err := exp.Export(doc)
//
// Or write straight to a file:
//
//	path, err := export.ExportToFile(doc, exp, &export.Options{OutputDir: "."})
package export
