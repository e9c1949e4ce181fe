package profile

import (
	"reflect"
	"testing"
)

func TestBuildTagsFixedOrder(t *testing.T) {
	r := validResponse()
	r.ContextualFactors.SpecialCircumstances = []string{"small_business_owner", "public_figure"}

	want := []string{
		"age_26_40",
		"occupation_technology",
		"jurisdiction_us",
		"privacy_very_important",
		"data_sharing_somewhat_uncomfortable",
		"financial_moderately_important",
		"auto_renewal_want_warnings",
		"legal_moderately_important",
		"arbitration_vaguely_aware",
		"tech_advanced",
		"activity_online_shopping",
		"activity_banking_finance",
		"reading_skim",
		"dependents_none",
		"circumstance_small_business_owner",
		"circumstance_public_figure",
		"alerts_before_agreeing",
	}

	got := BuildTags(r)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tags = %v\nwant %v", got, want)
	}

	// Same input, same sequence.
	again := BuildTags(r)
	if !reflect.DeepEqual(got, again) {
		t.Fatalf("tag order unstable: %v vs %v", got, again)
	}
}

func TestBuildTagsMultiSelectKeepsUserOrder(t *testing.T) {
	r := validResponse()
	r.DigitalBehavior.PrimaryActivities = []string{"gaming", "smart_home", "social_media"}

	got := BuildTags(r)
	idx := func(tag string) int {
		for i, v := range got {
			if v == tag {
				return i
			}
		}
		t.Fatalf("tag %q missing from %v", tag, got)
		return -1
	}

	if !(idx("activity_gaming") < idx("activity_smart_home") && idx("activity_smart_home") < idx("activity_social_media")) {
		t.Errorf("multi-select order not preserved: %v", got)
	}
}

func TestBuildTagsSuppressesDuplicates(t *testing.T) {
	r := validResponse()
	r.DigitalBehavior.PrimaryActivities = []string{"gaming", "gaming", "streaming"}

	got := BuildTags(r)
	count := 0
	for _, tag := range got {
		if tag == "activity_gaming" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate selection produced %d tags, want 1", count)
	}
}

func TestBuildTagsSkipsNoneCircumstance(t *testing.T) {
	r := validResponse()
	r.ContextualFactors.SpecialCircumstances = []string{"none"}

	for _, tag := range BuildTags(r) {
		if tag == "circumstance_none" {
			t.Fatal("circumstance_none should not be emitted")
		}
	}
}
