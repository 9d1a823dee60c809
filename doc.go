// Package clubsite is the backend of the biology club site: posts,
// uploads, the team page and printable exports.
//
// # Quick Start
//
// Open the store, create the service, and list posts for a viewer:
//
//	st, err := store.Open("data/site.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
//	svc, err := clubsite.New(config.DefaultConfig(), st)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	posts, err := svc.ListPosts(ctx, viewer, clubsite.PageLimit)
//
// An empty viewer is anonymous.
//
// # Asset References
//
// Posts and team members store image references, not URLs. Resolve maps
// a reference to a public URL with these rules, first match wins:
//
//  1. Empty reference: the placeholder
//  2. http:// or https:// URL: unchanged
//  3. Path under the public mount (e.g. /static/...): unchanged
//  4. Bare filename found in a candidate directory: that directory's URL
//  5. Anything else: the placeholder
//
// Post covers probe only the uploads directory. Team photos probe the
// bundled images first, then uploads.
//
// # Sections
//
// Posts belong to a Section. The lessons section ("lectii") is visible
// only to viewers holding the view:lessons capability. Hidden posts are
// reported as ErrPostNotFound.
//
// # Printable Export
//
// With an Exporter configured (see NewExporterPool), ExportPDF prints a
// post through headless Chrome. Local images are embedded as file:// or
// data: URLs so the page renders from disk.
//
// # Error Handling
//
// Errors are sentinels, matched with errors.Is:
//
//	if errors.Is(err, clubsite.ErrUnsupportedUpload) {
//	    // reject the form
//	}
package clubsite
