// Package contacts encodes and decodes vCard address books and converts them
// to and from Outlook-style CSV.
package contacts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Address is a postal address
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

func (a Address) empty() bool {
	return a == Address{}
}

// Contact is one address book entry
type Contact struct {
	UID        string   `json:"uid,omitempty"`
	FullName   string   `json:"fullName"`
	FirstName  string   `json:"firstName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Mobile     string   `json:"mobile,omitempty"`
	Company    string   `json:"company,omitempty"`
	JobTitle   string   `json:"jobTitle,omitempty"`
	Address    Address  `json:"address,omitzero"`
	Website    string   `json:"website,omitempty"`
	Birthday   string   `json:"birthday,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// DisplayName is the full name, or one assembled from the parts
func (c Contact) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	if name := strings.TrimSpace(c.FirstName + " " + c.LastName); name != "" {
		return name
	}
	if c.Company != "" {
		return c.Company
	}
	return c.Email
}

// Group is a named distribution list
type Group struct {
	UID     string   `json:"uid,omitempty"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Generator produces address books
type Generator struct {
	logger *logrus.Logger
}

// New creates a contacts generator
func New(logger *logrus.Logger) *Generator {
	return &Generator{logger: logger}
}

// Encode renders contacts as vCard 4.0
func (g *Generator) Encode(contacts ...Contact) ([]byte, error) {
	var buf bytes.Buffer
	enc := vcard.NewEncoder(&buf)
	for _, c := range contacts {
		card, err := toCard(c)
		if err != nil {
			return nil, err
		}
		if err := enc.Encode(card); err != nil {
			return nil, fmt.Errorf("failed to encode contact %q: %w", c.DisplayName(), err)
		}
	}
	return buf.Bytes(), nil
}

// EncodeGroup renders a group card followed by the cards of members not already
// in existing. Members are referenced by email address.
func (g *Generator) EncodeGroup(name string, members []Contact, existing ...Contact) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("a contact group needs a name")
	}
	if len(members) == 0 {
		return nil, errors.New("a contact group needs at least one member")
	}
	group := make(vcard.Card)
	group.SetKind(vcard.KindGroup)
	group.SetValue(vcard.FieldFormattedName, name)
	group.SetValue(vcard.FieldUID, "urn:uuid:"+uuid.NewString())
	for _, m := range members {
		if m.Email == "" {
			return nil, fmt.Errorf("group member %q has no email address", m.DisplayName())
		}
		group.AddValue(vcard.FieldMember, "mailto:"+m.Email)
	}
	vcard.ToV4(group)

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(group); err != nil {
		return nil, fmt.Errorf("failed to encode group %q: %w", name, err)
	}
	var fresh []Contact
	for _, m := range members {
		if !slices.ContainsFunc(existing, func(e Contact) bool { return strings.EqualFold(e.Email, m.Email) }) {
			fresh = append(fresh, m)
		}
	}
	cards, err := g.Encode(fresh...)
	if err != nil {
		return nil, err
	}
	buf.Write(cards)
	return buf.Bytes(), nil
}

func toCard(c Contact) (vcard.Card, error) {
	name := c.DisplayName()
	if name == "" {
		return nil, errors.New("a contact needs a name, company or email address")
	}
	card := make(vcard.Card)
	uid := c.UID
	if uid == "" {
		uid = "urn:uuid:" + uuid.NewString()
	}
	card.SetValue(vcard.FieldUID, uid)
	card.SetValue(vcard.FieldFormattedName, name)
	card.SetName(&vcard.Name{GivenName: c.FirstName, FamilyName: c.LastName})

	typed := func(field, value, kind string) {
		if value != "" {
			card.Add(field, &vcard.Field{Value: value, Params: vcard.Params{vcard.ParamType: {kind}}})
		}
	}
	typed(vcard.FieldEmail, c.Email, vcard.TypeWork)
	typed(vcard.FieldTelephone, c.Phone, vcard.TypeWork)
	typed(vcard.FieldTelephone, c.Mobile, vcard.TypeCell)

	set := func(field, value string) {
		if value != "" {
			card.SetValue(field, value)
		}
	}
	set(vcard.FieldOrganization, c.Company)
	set(vcard.FieldTitle, c.JobTitle)
	set(vcard.FieldURL, c.Website)
	set(vcard.FieldBirthday, strings.ReplaceAll(c.Birthday, "-", ""))
	set(vcard.FieldNote, c.Notes)
	if len(c.Categories) > 0 {
		card.SetValue(vcard.FieldCategories, strings.Join(c.Categories, ","))
	}
	if !c.Address.empty() {
		card.AddAddress(&vcard.Address{
			StreetAddress: c.Address.Street,
			Locality:      c.Address.City,
			Region:        c.Address.Region,
			PostalCode:    c.Address.PostalCode,
			Country:       c.Address.Country,
		})
	}
	vcard.ToV4(card)
	return card, nil
}

// Decode reads every card of a vCard file, separating groups from contacts
func (g *Generator) Decode(data []byte) ([]Contact, []Group, error) {
	dec := vcard.NewDecoder(bytes.NewReader(data))
	var contacts []Contact
	var groups []Group
	for {
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("invalid vCard data: %w", err)
		}
		if card.Kind() == vcard.KindGroup {
			group := Group{UID: card.Value(vcard.FieldUID), Name: card.Value(vcard.FieldFormattedName)}
			for _, m := range card.Values(vcard.FieldMember) {
				group.Members = append(group.Members, strings.TrimPrefix(m, "mailto:"))
			}
			groups = append(groups, group)
			continue
		}
		contacts = append(contacts, fromCard(card))
	}
	if contacts == nil && groups == nil {
		return nil, nil, errors.New("no vCards found")
	}
	return contacts, groups, nil
}

func fromCard(card vcard.Card) Contact {
	c := Contact{
		UID:      card.Value(vcard.FieldUID),
		FullName: card.Value(vcard.FieldFormattedName),
		Email:    card.PreferredValue(vcard.FieldEmail),
		Company:  card.Value(vcard.FieldOrganization),
		JobTitle: card.Value(vcard.FieldTitle),
		Website:  card.Value(vcard.FieldURL),
		Notes:    card.Value(vcard.FieldNote),
	}
	if n := card.Name(); n != nil {
		c.FirstName, c.LastName = n.GivenName, n.FamilyName
	}
	for _, f := range card[vcard.FieldTelephone] {
		if f.Params.HasType(vcard.TypeCell) {
			c.Mobile = f.Value
		} else if c.Phone == "" {
			c.Phone = f.Value
		}
	}
	if b := card.Value(vcard.FieldBirthday); len(b) == 8 {
		c.Birthday = b[:4] + "-" + b[4:6] + "-" + b[6:]
	} else {
		c.Birthday = b
	}
	if cats := card.Value(vcard.FieldCategories); cats != "" {
		c.Categories = strings.Split(cats, ",")
	}
	if addrs := card.Addresses(); len(addrs) > 0 {
		a := addrs[0]
		c.Address = Address{Street: a.StreetAddress, City: a.Locality, Region: a.Region, PostalCode: a.PostalCode, Country: a.Country}
	}
	return c
}
