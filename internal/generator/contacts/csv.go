package contacts

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// csvColumns are the Outlook export headers written by ToCSV
var csvColumns = []string{
	"First Name", "Last Name", "Display Name", "E-mail Address", "Business Phone", "Mobile Phone",
	"Company", "Job Title", "Business Street", "Business City", "Business State",
	"Business Postal Code", "Business Country/Region", "Web Page", "Birthday", "Notes", "Categories",
}

// headerAliases maps normalised header names from common exports onto csvColumns
var headerAliases = map[string]string{
	"firstname": "First Name", "givenname": "First Name",
	"lastname": "Last Name", "surname": "Last Name", "familyname": "Last Name",
	"name": "Display Name", "fullname": "Display Name", "displayname": "Display Name",
	"email": "E-mail Address", "emailaddress": "E-mail Address", "e-mailaddress": "E-mail Address", "e-mail": "E-mail Address",
	"phone": "Business Phone", "businessphone": "Business Phone", "telephone": "Business Phone",
	"mobile": "Mobile Phone", "mobilephone": "Mobile Phone", "cell": "Mobile Phone",
	"company": "Company", "organization": "Company", "organisation": "Company",
	"jobtitle": "Job Title", "title": "Job Title",
	"street": "Business Street", "businessstreet": "Business Street",
	"city": "Business City", "businesscity": "Business City",
	"state": "Business State", "region": "Business State", "businessstate": "Business State",
	"postalcode": "Business Postal Code", "zip": "Business Postal Code", "businesspostalcode": "Business Postal Code",
	"country": "Business Country/Region", "businesscountry/region": "Business Country/Region",
	"webpage": "Web Page", "website": "Web Page", "url": "Web Page",
	"birthday": "Birthday", "notes": "Notes", "categories": "Categories",
}

func normaliseHeader(h string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "_", "").Replace(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))))
}

// FromCSV reads contacts from a CSV export with a header row. Outlook, Google
// and plain snake_case headers are recognised; unknown columns are ignored.
func (g *Generator) FromCSV(r io.Reader) ([]Contact, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	columns := make(map[string]int)
	for i, h := range header {
		if canonical, ok := headerAliases[normaliseHeader(h)]; ok {
			if _, seen := columns[canonical]; !seen {
				columns[canonical] = i
			}
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no recognised contact columns in header %v", header)
	}

	var out []Contact
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV at line %d: %w", line, err)
		}
		get := func(column string) string {
			if i, ok := columns[column]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}
		c := Contact{
			FirstName: get("First Name"),
			LastName:  get("Last Name"),
			FullName:  get("Display Name"),
			Email:     get("E-mail Address"),
			Phone:     get("Business Phone"),
			Mobile:    get("Mobile Phone"),
			Company:   get("Company"),
			JobTitle:  get("Job Title"),
			Address: Address{
				Street:     get("Business Street"),
				City:       get("Business City"),
				Region:     get("Business State"),
				PostalCode: get("Business Postal Code"),
				Country:    get("Business Country/Region"),
			},
			Website:  get("Web Page"),
			Birthday: get("Birthday"),
			Notes:    get("Notes"),
		}
		if cats := get("Categories"); cats != "" {
			for _, cat := range strings.FieldsFunc(cats, func(r rune) bool { return r == ';' || r == ',' }) {
				c.Categories = append(c.Categories, strings.TrimSpace(cat))
			}
		}
		if c.DisplayName() == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// ToCSV writes contacts with Outlook export headers
func (g *Generator) ToCSV(contacts []Contact) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return nil, err
	}
	for _, c := range contacts {
		row := []string{
			c.FirstName, c.LastName, c.DisplayName(), c.Email, c.Phone, c.Mobile,
			c.Company, c.JobTitle, c.Address.Street, c.Address.City, c.Address.Region,
			c.Address.PostalCode, c.Address.Country, c.Website, c.Birthday, c.Notes,
			strings.Join(c.Categories, ";"),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
