// Package facts turns a decoded registration payload into the flat fact
// table rules evaluate against: nested objects are flattened to dotted
// paths, date fields are normalized to the canonical format, dictionary
// lookups derive document-type facts, and every fact a rule mentions but
// the payload omits is filled with an explicit unknown marker so absence
// is always a value, never a missing key.
package facts
