package cfp_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventyay/cfp/core/cfp"
	"github.com/eventyay/cfp/core/submission"
)

func TestFormFields(t *testing.T) {
	fields := cfp.FormFields(cfp.InfoForm{})

	byName := make(map[string]cfp.FieldMeta, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}

	title := byName["title"]
	assert.Equal(t, "Proposal title", title.Label)
	assert.True(t, title.Required)
	assert.Equal(t, "text", title.Widget)

	abstract := byName["abstract"]
	assert.Equal(t, "Abstract", abstract.Label) // derived from the field name
	assert.Equal(t, "textarea", abstract.Widget)
	assert.NotEmpty(t, abstract.Help)

	duration := byName["duration"]
	assert.False(t, duration.Required)
	assert.Equal(t, "number", duration.Widget)

	record := byName["do_not_record"]
	assert.Equal(t, "checkbox", record.Widget)

	speaker := byName["additional_speaker"]
	assert.Equal(t, "Additional Speaker", speaker.Label)
	assert.False(t, speaker.Required)
}

func TestBindForm(t *testing.T) {
	form := new(cfp.InfoForm)
	err := cfp.BindForm(map[string][]string{
		"title":           {"A title"},
		"duration":        {"45"},
		"submission_type": {"3"},
		"do_not_record":   {"on"},
		"unknown_field":   {"ignored"},
	}, form)
	require.NoError(t, err)

	assert.Equal(t, "A title", form.Title)
	assert.Equal(t, 45, form.Duration)
	assert.Equal(t, 3, form.SubmissionTypeID)
	assert.True(t, form.DoNotRecord)
	assert.Empty(t, form.Abstract)
}

func TestBindFormBadNumber(t *testing.T) {
	err := cfp.BindForm(map[string][]string{"duration": {"soon"}}, new(cfp.InfoForm))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"duration"`)
}

// Draft slices travel through JSON on the disk-backed store, so numbers
// come back as float64. Binding must tolerate that.
func TestBindDraftAfterJSONRoundTrip(t *testing.T) {
	form := &cfp.InfoForm{
		Title:            "A title",
		Abstract:         "An abstract.",
		Duration:         45,
		SubmissionTypeID: 3,
		DoNotRecord:      true,
	}
	raw, err := json.Marshal(cfp.SerializeMap(cfp.FormData(form)))
	require.NoError(t, err)

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.IsType(t, float64(0), stored["duration"])

	bound := new(cfp.InfoForm)
	require.NoError(t, cfp.BindDraft(stored, bound))
	assert.Equal(t, form, bound)
}

func TestSerializeValue(t *testing.T) {
	// referencers collapse to their primary key
	v, ok := cfp.SerializeValue(submission.SubmissionType{ID: 3, Name: "Talk"})
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	// files never enter the draft
	_, ok = cfp.SerializeValue(cfp.UploadedFile{Name: "slides.pdf"})
	assert.False(t, ok)
	_, ok = cfp.SerializeValue(cfp.FileRef{Name: "slides.pdf"})
	assert.False(t, ok)

	// iterables serialize element-wise
	v, ok = cfp.SerializeValue([]submission.Track{{ID: 1}, {ID: 2}})
	assert.True(t, ok)
	assert.Equal(t, []interface{}{1, 2}, v)

	// scalars pass through
	v, ok = cfp.SerializeValue(42)
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	v, ok = cfp.SerializeValue(nil)
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestSerializeMapDropsFiles(t *testing.T) {
	out := cfp.SerializeMap(map[string]interface{}{
		"title": "A title",
		"image": cfp.UploadedFile{Name: "logo.png", Content: strings.NewReader("png")},
		"track": submission.Track{ID: 2},
	})
	assert.Equal(t, map[string]interface{}{
		"title": "A title",
		"track": 2,
	}, out)
}
