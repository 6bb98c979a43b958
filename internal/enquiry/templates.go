package enquiry

import (
	"bytes"
	"html/template"
)

const (
	userSubject  = "Thank you for your quick enquiry!"
	adminSubject = "New quick enquiry submission"
)

var userTemplate = template.Must(template.New("user").Parse(`<html>
  <head>
    <style>
      body { font-family: Arial, sans-serif; }
      .container {
        max-width: 600px;
        margin: 0 auto;
        padding: 20px;
        background-color: #e0e0e0;
        border-radius: 8px;
        box-shadow: 0 0 10px rgba(0, 0, 0, 0.1);
      }
      h1 { color: #333; }
      p { color: #555; line-height: 1.6; }
    </style>
  </head>
  <body>
    <div class="container">
      <h1>Thank you for your quick enquiry!</h1>
      <p>Dear {{.Enquiry.Name}},</p>
      <p>Your enquiry has been received. We will review it and get back to you soon.</p>
      <p>We look forward to assisting you further. Thank you!</p>
      <p>Best regards,<br> {{.Team}}</p>
    </div>
  </body>
</html>
`))

var adminTemplate = template.Must(template.New("admin").Parse(`<h4>A new quick enquiry has been submitted:</h4>
<table style="border-collapse: collapse; width: 100%;">
{{- range .Rows}}
  <tr>
    <td style="border: 1px solid #dddddd; text-align: left; padding: 8px;"><strong>{{.Label}}:</strong></td>
    <td style="border: 1px solid #dddddd; text-align: left; padding: 8px;">{{.Value}}</td>
  </tr>
{{- end}}
</table>
`))

type row struct {
	Label string
	Value string
}

func renderUser(e Enquiry, team string) (string, error) {
	var b bytes.Buffer
	err := userTemplate.Execute(&b, struct {
		Enquiry Enquiry
		Team    string
	}{e, team})
	return b.String(), err
}

func renderAdmin(e Enquiry) (string, error) {
	var b bytes.Buffer
	err := adminTemplate.Execute(&b, struct{ Rows []row }{[]row{
		{"Name", e.Name},
		{"Email", e.Email},
		{"Phone No", e.PhoneNo},
		{"Business Name", e.BusinessName},
		{"Price", e.Price},
		{"Reservations", e.Reservations},
		{"Message", e.Message},
	}})
	return b.String(), err
}
