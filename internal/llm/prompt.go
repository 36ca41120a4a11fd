package llm

// ExtractionPrompt is sent verbatim alongside the cropped page image.
const ExtractionPrompt = `Extract work order number (8 digits after "Work Order No.") and extract Equipment No. from this work order document. ` +
	`Return the response in JSON format with keys "work_order_number" and "equipment_number". ` +
	`If you cannot find either value, set it to null.`
