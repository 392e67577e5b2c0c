package job

// Resolve merges a job's overrides with the run defaults. Every field takes the
// override when present, then the default, then the built-in fallback. No
// validation is performed; malformed dates are left for the execution service
// to reject.
func Resolve(name string, overrides Overrides, defaults Defaults) Spec {
	spec := Spec{
		Name:            name,
		Priority:        Priority(overrides, defaults),
		WorkerType:      pickString(overrides.WorkerType, defaults.WorkerType, FallbackWorkerType),
		NumberOfWorkers: pickInt(overrides.NumberOfWorkers, defaults.NumberOfWorkers, FallbackNumberOfWorkers),
		FromDate:        pickString(overrides.FromDate, defaults.FromDate, FallbackFromDate),
		ToDate:          pickString(overrides.ToDate, defaults.ToDate, FallbackToDate),
	}
	args := make(map[string]string, len(defaults.Arguments)+len(overrides.Arguments)+2)
	for key, value := range defaults.Arguments {
		args[key] = value
	}
	for key, value := range overrides.Arguments {
		args[key] = value
	}
	args[FromDateArgument] = spec.FromDate
	args[ToDateArgument] = spec.ToDate
	spec.Arguments = args
	return spec
}

// Priority resolves only the tier key, using the same fallback chain as
// Resolve. The scheduler groups on this before full resolution.
func Priority(overrides Overrides, defaults Defaults) int {
	return pickInt(overrides.Priority, defaults.Priority, FallbackPriority)
}

func pickString(override, def *string, fallback string) string {
	if override != nil {
		return *override
	}
	if def != nil {
		return *def
	}
	return fallback
}

func pickInt(override, def *int, fallback int) int {
	if override != nil {
		return *override
	}
	if def != nil {
		return *def
	}
	return fallback
}
