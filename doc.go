/*
Package dbmap is a generic data-access layer over an embedded relational
store. It synthesizes INSERT and SELECT statements from a record type's
shape, binds plain typed records into named parameter bags, and coerces the
untyped scalar rows coming back into strongly-typed records.

Mapping is convention over configuration: the table name is the record
type's name, each column name is the field name, and a db tag overrides the
column, marks the key, or forces a coercion category. The mapping table for
a type is built once and cached; a type can also declare it statically by
implementing Model.

Read-path mapping is best effort: a column whose value cannot be converted
leaves that one field at its zero value and never discards the row. Use
CollectWarnings to observe swallowed conversions.
*/
package dbmap
