package routine

// An expired end date renews from today, not from the stale date.
func CalculateRenewal(currentEnd *Date, months int, explicitEnd *Date, today Date) (Date, error) {
	if explicitEnd != nil {
		return *explicitEnd, nil
	}
	if months <= 0 {
		return "", validationErr("must supply months or an explicit new end date")
	}

	base := today
	if currentEnd != nil && !currentEnd.Before(today) {
		base = *currentEnd
	}
	return base.AddMonths(months), nil
}
