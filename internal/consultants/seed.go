package consultants

// DemoConsultants returns the directory used to seed development databases.
// Payment links point at Stripe test-mode links and must be replaced before
// taking real bookings.
func DemoConsultants() []*Consultant {
	return []*Consultant{
		{
			Name:        "Taro Yamada",
			Title:       "Business Strategy Consultant",
			Bio:         "Over ten years at a major consulting firm, supporting companies from startups to enterprises.\n\nCovers everything from strategy through execution, with particular strength in new business development and marketing strategy.",
			Expertise:   []string{"Business strategy", "New business development", "Marketing", "Growth strategy"},
			Price30Min:  10000,
			PaymentLink: "https://buy.stripe.com/test_xxxxx1",
			MeetURL:     "https://meet.google.com/abc-defg-hij",
			Email:       "yamada@example.com",
		},
		{
			Name:        "Hanako Sato",
			Title:       "Digital Marketing Specialist",
			Bio:         "Focused on social media marketing and content strategy, with ROI-driven practical advice.\n\nFormer head of digital marketing at a large advertising agency.",
			Expertise:   []string{"Social media marketing", "Content strategy", "SEO", "Influencer marketing"},
			Price30Min:  8000,
			PaymentLink: "https://buy.stripe.com/test_xxxxx2",
			MeetURL:     "https://meet.google.com/klm-nopq-rst",
			Email:       "sato@example.com",
		},
		{
			Name:        "Ichiro Suzuki",
			Title:       "Technology Consultant",
			Bio:         "Specialist in systems development and digital transformation, from technology selection to delivery.\n\nFormer startup CTO in Silicon Valley.",
			Expertise:   []string{"Systems development", "Digital transformation", "Cloud adoption", "Architecture design"},
			Price30Min:  12000,
			PaymentLink: "https://buy.stripe.com/test_xxxxx3",
			MeetURL:     "https://meet.google.com/uvw-xyz-abc",
			Email:       "suzuki@example.com",
		},
	}
}
