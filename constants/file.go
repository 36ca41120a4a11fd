package constants

import "strings"

// PDFExt is the only extension the batch picks up (compared case-insensitively).
const PDFExt = "pdf"

// CanonicalPrefix marks files that already carry the renamed form CS-<wo>-<equip>.pdf.
const CanonicalPrefix = "CS-"

// NoEquipment is used in place of the equipment number when none was extracted.
const NoEquipment = "NoEquip"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDFExt reports whether ext (with or without the dot) is a PDF extension.
func IsPDFExt(ext string) bool {
	return NormalizeExt(ext) == PDFExt
}

// IsCanonicalName reports whether a file name is already in renamed form.
func IsCanonicalName(name string) bool {
	return strings.HasPrefix(name, CanonicalPrefix)
}

// XLSXExt marks reference lists stored as spreadsheets.
const XLSXExt = "xlsx"
