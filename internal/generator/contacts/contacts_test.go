package contacts_test

import (
	"strings"
	"testing"

	"github.com/sammcj/mcp-office/internal/generator/contacts"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator() *contacts.Generator {
	return contacts.New(testutils.CreateTestLogger())
}

var ada = contacts.Contact{
	FirstName:  "Ada",
	LastName:   "Lovelace",
	Email:      "ada@example.com",
	Phone:      "+44 20 7946 0000",
	Mobile:     "+44 7700 900000",
	Company:    "Analytical Engines",
	JobTitle:   "Programmer",
	Address:    contacts.Address{Street: "12 St James's Square", City: "London", PostalCode: "SW1Y 4JH", Country: "UK"},
	Birthday:   "1815-12-10",
	Notes:      "First program, 1843",
	Categories: []string{"History", "Computing"},
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := newGenerator()
	data, err := g.Encode(ada)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "BEGIN:VCARD"))
	assert.Contains(t, text, "VERSION:4.0")
	assert.Contains(t, text, "FN:Ada Lovelace")
	assert.Contains(t, text, "BDAY:18151210")

	decoded, groups, err := g.Decode(data)
	require.NoError(t, err)
	assert.Empty(t, groups)
	require.Len(t, decoded, 1)

	got := decoded[0]
	assert.NotEmpty(t, got.UID)
	got.UID = ""
	want := ada
	want.FullName = "Ada Lovelace"
	assert.Equal(t, want, got)
}

func TestEncode_RequiresIdentity(t *testing.T) {
	_, err := newGenerator().Encode(contacts.Contact{Phone: "123"})
	assert.Error(t, err)
}

func TestGroup(t *testing.T) {
	g := newGenerator()
	grace := contacts.Contact{FullName: "Grace Hopper", Email: "grace@example.com"}
	data, err := g.EncodeGroup("Pioneers", []contacts.Contact{ada, grace})
	require.NoError(t, err)
	assert.Contains(t, string(data), "KIND:group")

	people, groups, err := g.Decode(data)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Pioneers", groups[0].Name)
	assert.Equal(t, []string{"ada@example.com", "grace@example.com"}, groups[0].Members)
	assert.Len(t, people, 2)

	data, err = g.EncodeGroup("Pioneers", []contacts.Contact{ada, grace}, ada)
	require.NoError(t, err)
	people, _, err = g.Decode(data)
	require.NoError(t, err)
	require.Len(t, people, 1, "known members are not repeated")
	assert.Equal(t, "Grace Hopper", people[0].FullName)

	_, err = g.EncodeGroup("", []contacts.Contact{ada})
	assert.Error(t, err)
	_, err = g.EncodeGroup("Empty", nil)
	assert.Error(t, err)
	_, err = g.EncodeGroup("No mail", []contacts.Contact{{FullName: "Nobody"}})
	assert.ErrorContains(t, err, "no email")
}

func TestDecode_Rejects(t *testing.T) {
	_, _, err := newGenerator().Decode([]byte(""))
	assert.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	g := newGenerator()
	data, err := g.ToCSV([]contacts.Contact{ada})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "First Name,Last Name,Display Name,E-mail Address"))

	back, err := g.FromCSV(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, back, 1)
	want := ada
	want.FullName = "Ada Lovelace"
	assert.Equal(t, want, back[0])
}

func TestFromCSV_Aliases(t *testing.T) {
	input := "\ufeffname,email,mobile,organisation,extra\n" +
		"Grace Hopper,grace@example.com,555-0100,US Navy,ignored\n" +
		",,,,\n" +
		"Alan Turing,alan@example.com,,,\n"
	got, err := newGenerator().FromCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, contacts.Contact{FullName: "Grace Hopper", Email: "grace@example.com", Mobile: "555-0100", Company: "US Navy"}, got[0])
	assert.Equal(t, "Alan Turing", got[1].DisplayName())

	_, err = newGenerator().FromCSV(strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorContains(t, err, "no recognised")
	_, err = newGenerator().FromCSV(strings.NewReader(""))
	assert.Error(t, err)
}
