package subscribers

import "time"

// Merge reconciles the id-keyed and handle-keyed subscriber lists into one
// deduplicated list. The id-keyed list is read first, so on tie timestamps
// its record wins; otherwise the record with the more recent re-arm (or
// subscription) timestamp survives. Output preserves first-seen order, so
// the result is deterministic for a given pair of inputs.
func Merge(byID, byHandle []Record) []Record {
	merged := make([]Record, 0, len(byID)+len(byHandle))
	index := make(map[string]int, len(byID)+len(byHandle))

	for _, src := range [][]Record{byID, byHandle} {
		for _, rec := range src {
			key := rec.IdentityKey()
			if key == "" {
				continue
			}
			at, ok := index[key]
			if !ok {
				index[key] = len(merged)
				merged = append(merged, rec)
				continue
			}
			if rec.effectiveTime().After(merged[at].effectiveTime()) {
				merged[at] = rec
			}
		}
	}
	return merged
}

// Rearm upserts an incoming registration into the list. An existing record
// for the same identity is refreshed in place: contact and product fields are
// updated, the notified flag resets so the subscriber is pending again, and
// the re-arm bookkeeping advances. A new identity is appended.
func Rearm(list []Record, incoming Record, now time.Time) []Record {
	key := incoming.IdentityKey()
	for i := range list {
		if list[i].IdentityKey() != key {
			continue
		}
		list[i].Email = incoming.Email
		list[i].Phone = incoming.Phone
		list[i].SMSConsent = incoming.SMSConsent
		list[i].ProductID = incoming.ProductID
		list[i].ProductHandle = incoming.ProductHandle
		list[i].ProductTitle = incoming.ProductTitle
		list[i].ProductURL = incoming.ProductURL
		list[i].Notified = false
		list[i].LastRearmedAt = now
		list[i].RearmCount++
		return list
	}
	incoming.Notified = false
	incoming.SubscribedAt = now
	return append(list, incoming)
}

// Remove deletes the record matching the identity key, reporting whether a
// record was found.
func Remove(list []Record, identityKey string) ([]Record, bool) {
	for i := range list {
		if list[i].IdentityKey() == identityKey {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

// Pending counts records still awaiting notification.
func Pending(list []Record) int {
	n := 0
	for _, r := range list {
		if !r.Notified {
			n++
		}
	}
	return n
}
