// Package label provides display data for issues: a localized description
// for each issue type and the icon references of the reporting tool.
//
// Descriptions come from message catalogs embedded in the package. A catalog
// is a directory holding messages.xml (English) and optional
// messages_<locale>.xml files in the FindBugs message format:
//
//	<MessageCollection>
//	  <BugPattern type="NP_NULL_ON_SOME_PATH">
//	    <ShortDescription>Possible null pointer dereference</ShortDescription>
//	    <Details><![CDATA[<p>...</p>]]></Details>
//	  </BugPattern>
//	</MessageCollection>
//
// Each catalog is loaded once per process on first use and never reloaded.
// The requested locale is matched with golang.org/x/text/language; types
// missing from the matched locale fall back to English, and types missing
// from the catalog fall back to the raw type key.
package label
