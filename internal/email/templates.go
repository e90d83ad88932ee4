package email

import "fmt"

func stagingCompletedHTML(name, projectName, projectURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background-color:#f6f6f4;font-family:Helvetica,Arial,sans-serif;">
  <div style="max-width:560px;margin:0 auto;padding:32px 24px;">
    <h1 style="font-size:22px;color:#1a1a1a;">Your staged room is ready!</h1>
    <p style="font-size:15px;color:#444;line-height:1.6;">Hi %s,</p>
    <p style="font-size:15px;color:#444;line-height:1.6;">
      The high-resolution staging for <strong>%s</strong> has finished processing
      and is ready to download.
    </p>
    <p style="margin:28px 0;">
      <a href="%s" style="background-color:#1a1a1a;color:#ffffff;padding:12px 24px;border-radius:6px;text-decoration:none;font-size:15px;">View your project</a>
    </p>
    <p style="font-size:13px;color:#999;line-height:1.5;">
      Download links stay valid for 7 days. You can always request a fresh link
      from your project page.
    </p>
    <p style="font-size:13px;color:#999;">— The SnapStage team</p>
  </div>
</body>
</html>`, name, projectName, projectURL)
}

func stagingCompletedText(name, projectName, projectURL string) string {
	return fmt.Sprintf(`Hi %s,

The high-resolution staging for %s has finished processing and is ready to download.

View your project: %s

Download links stay valid for 7 days. You can always request a fresh link from your project page.

- The SnapStage team
`, name, projectName, projectURL)
}
