package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateFieldAreaResetsSubArea(t *testing.T) {
	in := DefaultFilters()
	in.Area = "Busan"
	in.SubArea = "Busan-sub"
	in.MainCategory = "Culture"
	in.Page = 4

	out, err := UpdateField(in, FieldArea, "Seoul")
	require.NoError(t, err)
	require.Equal(t, "Seoul", out.Area)
	require.Equal(t, All, out.SubArea)
	require.Equal(t, 1, out.Page)
	require.Equal(t, "Culture", out.MainCategory)
}

func TestUpdateFieldMainCategoryResetsMediumAndSmall(t *testing.T) {
	in := DefaultFilters()
	in.MainCategory = "Culture"
	in.MediumCategory = "Festival"
	in.SmallCategory = "Music"
	in.Area = "Seoul"
	in.SubArea = "Jongno"

	out, err := UpdateField(in, FieldMainCategory, "Nature")
	require.NoError(t, err)
	require.Equal(t, "Nature", out.MainCategory)
	require.Equal(t, All, out.MediumCategory)
	require.Equal(t, All, out.SmallCategory)
	require.Equal(t, "Seoul", out.Area)
	require.Equal(t, "Jongno", out.SubArea)
}

func TestUpdateFieldMediumResetsSmallOnly(t *testing.T) {
	in := DefaultFilters()
	in.MainCategory = "Culture"
	in.MediumCategory = "Festival"
	in.SmallCategory = "Music"

	out, err := UpdateField(in, FieldMediumCategory, "Exhibition")
	require.NoError(t, err)
	require.Equal(t, "Culture", out.MainCategory)
	require.Equal(t, "Exhibition", out.MediumCategory)
	require.Equal(t, All, out.SmallCategory)
}

func TestUpdateFieldLeafChangesOnlyItselfAndPage(t *testing.T) {
	in := Filters{
		Area:           "Seoul",
		SubArea:        "Jongno",
		MainCategory:   "Culture",
		MediumCategory: "Festival",
		SmallCategory:  "Music",
		Status:         StatusOngoing,
		Page:           3,
	}

	out, err := UpdateField(in, FieldSubArea, "Gangnam")
	require.NoError(t, err)

	want := in
	want.SubArea = "Gangnam"
	want.Page = 1
	require.Equal(t, want, out)
}

func TestUpdateFieldAlwaysResetsPage(t *testing.T) {
	fields := []Field{FieldArea, FieldSubArea, FieldMainCategory, FieldMediumCategory, FieldSmallCategory, FieldStatus}
	for _, field := range fields {
		t.Run(string(field), func(t *testing.T) {
			in := DefaultFilters().WithPage(9)
			value := "X"
			if field == FieldStatus {
				value = string(StatusEnded)
			}
			out, err := UpdateField(in, field, value)
			require.NoError(t, err)
			require.Equal(t, 1, out.Page)
			require.Equal(t, value, out.Get(field))
			for _, child := range Dependents(field) {
				require.Equal(t, All, out.Get(child))
			}
		})
	}
}

func TestUpdateFieldSameValueStillResets(t *testing.T) {
	in := DefaultFilters()
	in.Area = "Seoul"
	in.SubArea = "Jongno"
	out, err := UpdateField(in, FieldArea, "Seoul")
	require.NoError(t, err)
	require.Equal(t, All, out.SubArea)
}

func TestUpdateFieldAcceptsValuesOutsideOptions(t *testing.T) {
	out, err := UpdateField(DefaultFilters(), FieldSmallCategory, "not-a-listed-option")
	require.NoError(t, err)
	require.Equal(t, "not-a-listed-option", out.SmallCategory)
}

func TestUpdateFieldEmptyMeansAll(t *testing.T) {
	in := DefaultFilters()
	in.Area = "Seoul"
	out, err := UpdateField(in, FieldArea, "  ")
	require.NoError(t, err)
	require.Equal(t, All, out.Area)
}

func TestUpdateFieldRejectsUnknownFieldAndStatus(t *testing.T) {
	in := DefaultFilters().WithPage(2)

	out, err := UpdateField(in, Field("region"), "x")
	require.ErrorIs(t, err, ErrUnknownField)
	require.Equal(t, in, out)

	out, err = UpdateField(in, FieldStatus, "someday")
	require.ErrorIs(t, err, ErrInvalidStatus)
	require.Equal(t, in, out)
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("ongoing")
	require.NoError(t, err)
	require.Equal(t, StatusOngoing, status)

	status, err = ParseStatus("")
	require.NoError(t, err)
	require.Equal(t, StatusAll, status)
}

func TestParseField(t *testing.T) {
	field, err := ParseField("mediumCategory")
	require.NoError(t, err)
	require.Equal(t, FieldMediumCategory, field)

	_, err = ParseField("page")
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestNormalize(t *testing.T) {
	in := Filters{SubArea: "Jongno", MediumCategory: "Festival", SmallCategory: "Music", Status: "weird", Page: -2}
	out := in.Normalize()
	require.Equal(t, DefaultFilters(), out)

	in = Filters{Area: "Seoul", SubArea: "Jongno", MainCategory: "Culture", MediumCategory: "", SmallCategory: "Music", Page: 2}
	out = in.Normalize()
	require.Equal(t, "Jongno", out.SubArea)
	require.Equal(t, All, out.MediumCategory)
	require.Equal(t, All, out.SmallCategory)
	require.Equal(t, 2, out.Page)
}

func TestEnabled(t *testing.T) {
	f := DefaultFilters()
	require.False(t, f.Enabled(FieldSubArea))
	require.False(t, f.Enabled(FieldMediumCategory))
	require.False(t, f.Enabled(FieldSmallCategory))
	require.True(t, f.Enabled(FieldArea))

	f.Area = "Seoul"
	f.MainCategory = "Culture"
	require.True(t, f.Enabled(FieldSubArea))
	require.True(t, f.Enabled(FieldMediumCategory))
	require.False(t, f.Enabled(FieldSmallCategory))

	f.MediumCategory = "Festival"
	require.True(t, f.Enabled(FieldSmallCategory))
}

func TestWithPage(t *testing.T) {
	f := DefaultFilters()
	f.Area = "Seoul"
	f.SubArea = "Jongno"
	out := f.WithPage(3)
	require.Equal(t, 3, out.Page)
	require.Equal(t, "Jongno", out.SubArea)
	require.Equal(t, 1, f.WithPage(0).Page)
}
