/*
Package diggs validates DIGGS XML documents against the local copy of the DIGGS
schema family.

The schema version is selected from the default namespace declared on the
document's root element. DIGGS schemas reference each other through
http://diggsml.org/... locations that are never fetched: every include, import
and external entity goes through a Resolver that maps it onto the local schema
tree, trying in order

  - the per-call cache,
  - the diggsml.org location mapped into schema-dev or schemas/2.6,
  - the location relative to the referring schema,
  - the file name under the active version's tree and its core, base,
    infrastructure, measurement and project subdirectories.

References no strategy can satisfy are reported as diagnostics of the
validation, never fetched.

# Usage

	v, err := diggs.New("/srv/schemas", diggs.WithLogger(logger))
	if err != nil {
		return err
	}
	result := v.Validate(content)
	for _, message := range result.Messages {
		fmt.Println(message)
	}
*/
package diggs
