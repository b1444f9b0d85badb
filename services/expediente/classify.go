package expediente

import (
	"log/slog"
	"tybafetch/lib/textutil"
)

// Verdict is the classifier's decision for one document.
type Verdict int

const (
	// VerdictKeep marks a substantive document (ruling, pleading,
	// evidence) that must stay in the case directory.
	VerdictKeep Verdict = iota
	// VerdictDiscard marks a purely procedural notification that may be
	// deleted when the caller opted into notification skipping.
	VerdictDiscard
)

func (v Verdict) String() string {
	if v == VerdictDiscard {
		return "discard"
	}
	return "keep"
}

// Classifier decides substantive-vs-notification from a document title and
// the optional text of its first page. It is a pure function of its inputs:
// no I/O, no state, same inputs always produce the same verdict. Absence of
// evidence always resolves to Keep; a failed PDF parse must never be the
// reason a document disappears.
type Classifier struct{}

// Classify applies the title pre-screen, then content arbitration.
// firstPage == "" means no content is available (missing file, scanned
// document, extraction failure) and the title-only verdict stands.
//
// When a title looks like a notification but none of the template
// signatures appear in the content, the verdict falls through to the
// content protection list and then the content notification list; this
// consolidates behavior that diverged between revisions of the legacy
// workflow and is pending product confirmation.
func (Classifier) Classify(title, firstPage string) Verdict {
	name := textutil.Normalize(title)

	notifKw, likelyNotification := textutil.ContainsAny(name, notificationKeywords)
	protectedKw, protectedByName := textutil.ContainsAny(name, protectedTitleKeywords)

	if protectedByName && !likelyNotification {
		slog.Debug("classifier: protected by title", "title", title, "keyword", protectedKw)
		return VerdictKeep
	}
	if protectedByName && likelyNotification {
		slog.Debug("classifier: ambiguous title, deferring to content",
			"title", title, "protected", protectedKw, "notification", notifKw)
	}

	titleVerdict := VerdictKeep
	if likelyNotification {
		titleVerdict = VerdictDiscard
	}

	if firstPage == "" {
		return titleVerdict
	}
	content := textutil.Normalize(firstPage)

	if likelyNotification {
		if sig, ok := textutil.ContainsAny(content, formatSignatures); ok {
			slog.Debug("classifier: notification format confirmed", "title", title, "signature", sig)
			return VerdictDiscard
		}
	}

	if kw, ok := textutil.ContainsAny(content, protectedContentKeywords); ok {
		slog.Debug("classifier: protected by content", "title", title, "keyword", kw)
		return VerdictKeep
	}

	if kw, ok := textutil.ContainsAny(content, notificationKeywords); ok {
		slog.Debug("classifier: notification by content", "title", title, "keyword", kw)
		return VerdictDiscard
	}

	return titleVerdict
}
