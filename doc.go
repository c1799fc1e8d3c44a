// Package warnings ingests the reports of static analysis tools and
// normalizes them into issues with a uniform shape: file, line and column
// range, type, category, package, message and one of four priorities.
//
// # Tools
//
// Every supported tool is a registry entry that pairs a parser adapter with a
// label provider. The built-in entries (package registry/builtin) cover
// FindBugs and SpotBugs XML, Checkstyle XML and javac or Maven compiler
// output. Additional tools are added with registry.Register.
//
// # Parsing
//
//	engine := warnings.New(warnings.WithLogger(logger))
//
//	res, err := engine.Parse(ctx, warnings.Request{
//		Tool: "findbugs",
//		Path: "target/spotbugsXml.xml",
//	})
//	if err != nil {
//		// toolerr.IsNotFound(err): unknown tool
//		// toolerr.IsParse(err): unreadable report
//	}
//	for _, i := range res.Issues.All() {
//		fmt.Println(i)
//	}
//
// A record that cannot be converted into an issue never fails the parse. It
// is counted in Result.Stats.Malformed and described in Result.Skipped.
//
// ParseAll parses independent reports concurrently and returns the results in
// request order.
//
// # Descriptions
//
// Describe returns the explanation of an issue's type in the requested
// language, falling back to English and then to the issue type itself.
//
// # Observability
//
// WithTracer records a "warnings.parse" span per report. WithMeter records the
// warnings.issues and warnings.malformed_records counters and the
// warnings.parse.duration histogram.
package warnings
