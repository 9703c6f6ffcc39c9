// Package archive produces and checks the layer zip file.
//
// Create compresses the full staging tree into a single archive,
// overwriting any previous one; Compare proves the archive's contents
// match the staging tree byte for byte. The original build tooling only
// tested whether the zip file existed after compression; Compare is the
// gating replacement for that check.
package archive
