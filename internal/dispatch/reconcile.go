package dispatch

import "strings"

// reconcileContact repairs address and phone cells that were transposed or
// merged in the export, then cleans both. Every repair is reported as a
// warning without a row number; the caller fills it in.
func reconcileContact(address, phone string) (string, string, []ParseIssue) {
	var fixes []ParseIssue

	// Phone cell holding address text: fold it into the address.
	if phone != "" && !IsPhoneNumber(phone) {
		original := phone
		msg := "Phone column contained address text; moved to address"
		switch {
		case address == "":
			address = phone
		case strings.Contains(strings.ToLower(address), strings.ToLower(phone)):
			msg = "Phone column repeated address text; cleared"
		default:
			address = address + ", " + phone
		}
		phone = ""
		fixes = append(fixes, ParseIssue{
			Message:        msg,
			Field:          "contactPhone",
			OriginalValue:  original,
			CorrectedValue: address,
		})
	}

	// Address ending in a phone number with no phone captured: split it off.
	if phone == "" {
		if rest, found, ok := splitTrailingPhone(address); ok {
			fixes = append(fixes, ParseIssue{
				Message:        "Phone number found at end of address; moved to contact phone",
				Field:          "address",
				OriginalValue:  address,
				CorrectedValue: rest,
			})
			address, phone = rest, found
		}
	}

	if phone != "" {
		cleaned, collapsed := CleanPhone(phone)
		if collapsed {
			fixes = append(fixes, ParseIssue{
				Message:        "Multiple phone numbers found; kept the first",
				Field:          "contactPhone",
				OriginalValue:  phone,
				CorrectedValue: cleaned,
			})
		}
		phone = cleaned
	}

	return CleanAddress(address), phone, fixes
}
