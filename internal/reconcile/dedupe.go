package reconcile

import (
	"fmt"
	"strings"
)

// DefaultDupKeyFields is the composite key used for duplicate detection on
// both ledgers.
var DefaultDupKeyFields = []string{"invoice_id", "amount", "date"}

const dupKeySeparator = "|"

const (
	dupLabelBank = "Duplicate in Bank"
	dupLabelERP  = "Duplicate in ERP"
)

// DedupeBank partitions bank records into duplicate groups by the given key
// fields and returns a copy of the record set with all but the first member
// of each group flagged. The input is never modified.
func DedupeBank(records []BankRecord, keyFields []string) ([]BankRecord, []DuplicateGroup) {
	out := make([]BankRecord, len(records))
	copy(out, records)

	groups, dupIdx := groupByKey(len(records), keyFields, SourceBank, func(i int, field string) (string, bool) {
		return bankKeyField(records[i], field)
	})
	for _, i := range dupIdx {
		out[i].DuplicateFlag = true
		out[i].DuplicateLabel = dupLabelBank
	}
	return out, groups
}

// DedupeERP is the ERP-side counterpart of DedupeBank.
func DedupeERP(records []ErpRecord, keyFields []string) ([]ErpRecord, []DuplicateGroup) {
	out := make([]ErpRecord, len(records))
	copy(out, records)

	groups, dupIdx := groupByKey(len(records), keyFields, SourceERP, func(i int, field string) (string, bool) {
		return erpKeyField(records[i], field)
	})
	for _, i := range dupIdx {
		out[i].DuplicateFlag = true
		out[i].DuplicateLabel = dupLabelERP
	}
	return out, groups
}

// groupByKey builds the composite key per record and collects groups with
// two or more members. Grouping is stable: member indices are in source row
// order and the first member of each group is the retained primary. Records
// where no key field is present are left ungrouped, and an unrecognized
// key-field list yields no groups at all.
func groupByKey(n int, keyFields []string, source Source, fieldOf func(int, string) (string, bool)) ([]DuplicateGroup, []int) {
	byKey := make(map[string][]int)
	var keyOrder []string

	for i := 0; i < n; i++ {
		var parts []string
		for _, field := range keyFields {
			if v, ok := fieldOf(i, field); ok {
				parts = append(parts, v)
			}
		}
		if len(parts) == 0 {
			continue
		}
		key := strings.Join(parts, dupKeySeparator)
		if _, seen := byKey[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		byKey[key] = append(byKey[key], i)
	}

	var groups []DuplicateGroup
	var dupIdx []int
	for _, key := range keyOrder {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, DuplicateGroup{
			Key:           key,
			Count:         len(members),
			MemberIndices: members,
			Source:        source,
		})
		dupIdx = append(dupIdx, members[1:]...)
	}
	return groups, dupIdx
}

func bankKeyField(r BankRecord, field string) (string, bool) {
	switch field {
	case "invoice_id":
		if r.InvoiceID == "" {
			return "", false
		}
		return r.InvoiceID, true
	case "amount":
		return fmt.Sprintf("%.2f", r.Amount), true
	case "date":
		if r.Date == "" {
			return "", false
		}
		return r.Date, true
	}
	return "", false
}

func erpKeyField(r ErpRecord, field string) (string, bool) {
	switch field {
	case "invoice_id":
		if r.InvoiceID == "" {
			return "", false
		}
		return r.InvoiceID, true
	case "amount":
		return fmt.Sprintf("%.2f", r.Amount), true
	case "date":
		if r.Date == "" {
			return "", false
		}
		return r.Date, true
	}
	return "", false
}
